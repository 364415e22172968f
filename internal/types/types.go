package types

// ResponseType tells the receiver how to interpret a Response
type ResponseType uint8

const (
	ResponseTypeNormal ResponseType = iota
	ResponseTypeError
	ResponseTypeNotImplemented
)

// Request represents a method call sent over a channel
type Request struct {
	ID      string
	Channel string
	Method  string
	Arg     any
}

// Response represents the outcome of a Request
type Response struct {
	ID      string
	Type    ResponseType
	Return  any
	Code    string
	Error   string
	Details any
}
