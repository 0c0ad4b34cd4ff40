// Package hub renders and parses the MQTT topics a device uses to talk to
// the hub: device twin requests and pushes, telemetry, cloud-to-device
// messages and direct methods.
//
// A Client is built once per device session and is read-only afterwards:
//
//	c, err := hub.New([]byte("myhub.example.net"), []byte("dev-01"), &hub.Options{
//	    Diagnostics: d,
//	})
//
//	var buf [128]byte
//	n, err := c.TwinGetPublishTopic(rid, buf[:])
//
// Received topics are classified with ParseTwinTopic, ParseMethodTopic and
// ParseC2DTopic. Every []byte in a parsed value is a sub-slice of the topic
// passed in; keep that buffer alive while the value is in use.
//
// Render and parse calls do not allocate.
package hub
