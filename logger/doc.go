// Package logger is a thin zerolog wrapper shared by every apikit package.
//
// Loggers are values passed down explicitly: the factory builds one from
// Config and hands component-tagged children to the lifecycle manager, the
// pipeline executor and the built-in filters.
//
//	log := logger.New(&logger.Config{Level: "debug", Format: "json"}, "billing-client")
//	log.WithComponent("lifecycle").Info("handle swapped", logger.Fields(logger.FieldHandleKey, key))
package logger
