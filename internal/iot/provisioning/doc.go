// Package provisioning renders and parses the MQTT topics of the zero-touch
// device provisioning service and classifies the state of a registration
// operation.
//
// Registration is a long-running operation. The device publishes a register
// request, then keeps querying the operation until it reaches a terminal
// state:
//
//	resp, err := c.ParseReceivedTopicAndPayload(topic, payload)
//	if err != nil { ... }
//	if !provisioning.Classify(&resp).IsTerminal() {
//	    // wait at least resp.RetryAfterSeconds, then
//	    n, err := c.QueryStatusPublishTopic(&resp, buf[:])
//	}
//
// The package does not sleep, retry or keep connection state. Values in a
// RegisterResponse are sub-slices of the received topic and payload. JSON
// string values are returned as they appear on the wire, without unescaping.
package provisioning
