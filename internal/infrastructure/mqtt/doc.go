// Package mqtt wraps the paho MQTT client for the gateway.
//
// Two consumers share this client: the builtin mqttbus protocol driver,
// which treats broker topics as point addresses, and the gateway itself,
// which publishes retained status under the grayedge/ prefix and announces
// unexpected disconnects through a Last Will message.
//
// The client tracks subscriptions and restores them after every reconnect,
// and wraps message handlers with panic recovery so a bad handler cannot
// kill paho's delivery goroutines.
package mqtt
