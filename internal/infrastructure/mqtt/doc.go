// Package mqtt gives the driver an optional broker leg.
//
// Outbound, the driver publishes retained device state and availability,
// unretained command outcomes, a discovery announcement, and its own
// system status (with an LWT for crash detection). Inbound, it
// subscribes to one wildcard, <prefix>/command/+/set: publishing to a
// command's set topic dispatches it, which lets wall panels or
// automations drive the same virtual commands the remote uses without
// going through the HTTP API.
//
//	consumers ◄── broker ◄──► goveeremote ──► Govee cloud
//
// The broker is never required: every feature degrades to a log line
// when mqtt.enabled is false or the connection is down.
//
// TLS (cfg.Broker.TLS) is recommended beyond a trusted LAN; payloads are
// plain JSON and carry household device names.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	topics := mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
//	client.PublishRetained(topics.DeviceState("AA:11"), []byte(`{"powerSwitch":1}`))
package mqtt
