package ui

// quietPresenter drains events and produces no output. Errors still reach
// the user through the stderr logger.
type quietPresenter struct{}

func (*quietPresenter) Run(events <-chan Event) error {
	for range events {
	}
	return nil
}

func (*quietPresenter) Summary() string {
	return ""
}
