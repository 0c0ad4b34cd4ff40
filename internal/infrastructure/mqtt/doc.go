// Package mqtt is the paho-based broker connection of the device link.
//
// A Client connects as an Identity rendered by the topic codec (see
// HubIdentity and ProvisioningIdentity), authenticates with a shared access
// signature or an X.509 client certificate over TLS, and restores its
// subscriptions after every reconnect. Topic turns any codec render method
// into a string:
//
//	id, err := mqtt.HubIdentity(hubClient)
//	client, err := mqtt.Connect(ctx, cfg.MQTT, id)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	filter, _ := mqtt.Topic(hubClient.TwinPatchSubscribeTopicFilter)
//	err = client.Subscribe(filter, 1, func(t, payload []byte) error {
//	    resp, err := hubClient.ParseTwinTopic(t)
//	    ...
//	})
//
// Shared access signatures expire; a long-running process has to reconnect
// with a fresh one before that happens.
package mqtt
