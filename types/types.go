package types

// Action identifies what an InvalidationEvent asks peers to do.
type Action = string

// Action values carried by InvalidationEvent.
const (
	InvalidateKey     Action = "key"
	InvalidateTag     Action = "tag"
	InvalidatePattern Action = "pattern"
	Clear             Action = "clear"
)

// InvalidationEvent represents a cache invalidation broadcast between instances.
// Only the target of the invalidation travels on the wire, never a cached value.
type InvalidationEvent struct {
	Action  Action `json:"action" msgpack:"action"`
	Target  string `json:"target,omitempty" msgpack:"target,omitempty"` // key, tag or substring depending on Action
	Sender  string `json:"sender" msgpack:"sender"`
	Removed int    `json:"removed,omitempty" msgpack:"removed,omitempty"` // entries removed on the sender
}
