// Package rosbag decodes ROS bag v2 files.
//
// A bag is a sequence of length-prefixed records: a bag header, connection
// records that bind a connection id to a topic and its message definition,
// and message data records carrying serialized messages. Records are usually
// packed into chunks compressed with none, bz2 or lz4.
//
// Decoder exposes the raw record stream. Bag layers the reader contract used
// by the converter on top of it: topic enumeration and a restartable,
// per-topic message iteration that decodes each message into a
// map[string]interface{} following the topic's MessageDefinition.
package rosbag
