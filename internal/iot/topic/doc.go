// Package topic implements the shared grammar of the device link topics.
//
// Every outbound topic is described by a Spec in a fixed table: literal
// segments interleaved with substituted fields. Render measures the exact
// length first and only writes when the whole topic fits, so a failed render
// never leaves a partial topic in the caller's buffer.
//
//	var buf [128]byte
//	n, err := topic.Render(d, topic.KindTwinGetPublish, &topic.Fields{
//	    RequestID: []byte("req-1"),
//	}, buf[:])
//	// buf[:n] == "$iothub/twin/GET/?$rid=req-1"
//
// Inbound topics are parsed with the primitives in parse.go: CutPrefix,
// strict decimal parsers, a query-parameter scanner and an ordered Matcher
// list. None of them allocate; results alias the input.
//
// filter.go carries MQTT topic name and filter validation per MQTT 3.1.1
// section 4.7, used by the transport adapter before it hands topics to the
// broker.
package topic
