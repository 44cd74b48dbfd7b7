package pipeline

// Parts apportions the progress bar across the run. The submission
// stages dominate since they page through detail fetches one request
// at a time: with n comparison users the self stage is one of n+1
// equal shares of 80 points and the comparison stage takes the rest.
type Parts struct {
	Stage1 float64 // own submissions
	Stage2 float64 // tasks
	Stage3 float64 // standings / target users
	Stage4 float64 // comparison users' submissions
	Export float64
	Review float64
}

// PartsFor computes the stage weights for n comparison users. When a
// review is requested the collection stages are squeezed to 85 points
// so the export and review tail has room.
func PartsFor(topN int, withReview bool) Parts {
	n := topN
	if n < 1 {
		n = 1
	}
	if n > 5 {
		n = 5
	}

	parts := Parts{
		Stage1: 80 / float64(n+1),
		Stage2: 15,
		Stage3: 5,
		Stage4: 80 * float64(n) / float64(n+1),
	}
	if withReview {
		const scale = 0.85
		parts.Stage1 *= scale
		parts.Stage2 *= scale
		parts.Stage3 *= scale
		parts.Stage4 *= scale
		parts.Export = 5
		parts.Review = 10
	}
	return parts
}

func clampPct(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Update is one live progress event. A terminal update has Done set;
// it is an outcome, not necessarily an error.
type Update struct {
	Contest  string
	Text     string
	IsError  bool
	Done     bool
	Progress float64
}

// Notifier receives live updates. Delivery is best effort: an
// observer may attach late or not at all, which is why the pipeline
// also persists every snapshot through the record store.
type Notifier interface {
	Notify(update Update)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(update Update)

func (f NotifierFunc) Notify(update Update) {
	f(update)
}
