package events

// Topics emitted by the cart gateway.
const (
	TopicOrderConfirmed    = "order.confirmed"
	TopicOrderSubmitFailed = "order.submit_failed"
	TopicCartSubmitted     = "cart.submitted"
)

// DefaultTopics returns the canonical list of topics.
func DefaultTopics() []string {
	return []string{
		TopicOrderConfirmed,
		TopicOrderSubmitFailed,
		TopicCartSubmitted,
	}
}
