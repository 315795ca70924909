package appointment

// Count folds appointments into status counts. It has no side effects and
// returns the same result for the same input.
func Count(appts []Appointment) Counts {
	var c Counts
	for _, a := range appts {
		switch a.Status {
		case StatusScheduled:
			c.Scheduled++
		case StatusPending:
			c.Pending++
		case StatusCancelled:
			c.Cancelled++
		default:
			c.Unrecognized++
		}
	}
	c.Total = c.Scheduled + c.Pending + c.Cancelled
	return c
}
