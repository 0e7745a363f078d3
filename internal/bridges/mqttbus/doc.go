// Package mqttbus is the builtin MQTT protocol driver.
//
// It is registered as a system plugin under the name "mqtt_bus" whenever
// the MQTT connection is enabled. Point addresses are raw broker topics:
// a read returns the last scalar observed on the topic (subscribing on
// first use), and a write publishes the value retained so the topic itself
// holds device state.
//
// Payloads are JSON scalars; anything that fails to parse is treated as a
// bare string. Values read off the bus are checked against the point's
// declared data type since topics are uncontrolled input.
package mqttbus
