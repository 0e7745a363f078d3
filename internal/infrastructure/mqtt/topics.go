package mqtt

import "strconv"

// topicPrefix roots every topic the gateway itself publishes. Driver
// traffic (the mqttbus protocol) is deliberately unprefixed: point
// addresses are raw broker topics owned by the site.
const topicPrefix = "grayedge"

// Topics builds the gateway's own topic names. Zero value is ready to use.
type Topics struct{}

// SystemStatus is the retained gateway online/offline topic, also used as
// the LWT target.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// PointValue is the retained per-point committed value topic.
func (Topics) PointValue(pointID int64) string {
	return topicPrefix + "/points/" + strconv.FormatInt(pointID, 10) + "/value"
}
