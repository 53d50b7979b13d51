// Package sweep implements the batch jobs that walk order rows on a
// schedule: cancelling unpaid orders past their deadline, expiring
// unconfirmed receipts, and republishing real-sales counters.
package sweep

import "fmt"

// PreviewLimit caps how many order serials a dry run lists.
const PreviewLimit = 10

// Failure records one order a sweep could not process.
type Failure struct {
	OrderID string
	Serial  string
	Err     error
}

// Report summarizes one sweep run. A run where some orders failed but
// others succeeded is normal operation; Failed() tells the process
// whether to exit non-zero.
type Report struct {
	DryRun    bool
	Eligible  int64
	Processed int
	Succeeded int
	Failures  []Failure

	// Preview holds up to PreviewLimit serials a dry run would have
	// processed. Always empty on live runs.
	Preview []string
}

// Failed reports whether any order failed. A dry run never fails on
// eligibility alone.
func (r *Report) Failed() bool { return len(r.Failures) > 0 }

func (r *Report) recordFailure(orderID, serial string, err error) {
	r.Failures = append(r.Failures, Failure{OrderID: orderID, Serial: serial, Err: err})
}

func (r *Report) String() string {
	if r.DryRun {
		return fmt.Sprintf("dry run: %d eligible, preview %d", r.Eligible, len(r.Preview))
	}
	return fmt.Sprintf("processed %d: %d succeeded, %d failed",
		r.Processed, r.Succeeded, len(r.Failures))
}
