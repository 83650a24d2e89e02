package relay

// Observer receives lifecycle and delivery events from a Coordinator. Methods
// are called from connection goroutines and must be safe for concurrent use.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed(outcome Outcome)
	MessageReceived()
	MessageDropped()
	Delivered()
	DeliveryFailed()
}

type nopObserver struct{}

func (nopObserver) ConnectionOpened()        {}
func (nopObserver) ConnectionClosed(Outcome) {}
func (nopObserver) MessageReceived()         {}
func (nopObserver) MessageDropped()          {}
func (nopObserver) Delivered()               {}
func (nopObserver) DeliveryFailed()          {}
