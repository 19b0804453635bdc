// Package logging builds the service's zap logger.
//
// Production output is JSON, development output is colored console text.
// Components never log through a global; each receives a named child so every
// line carries the component that wrote it:
//
//	log, err := logging.New(logging.FromConfig(cfg.Logging, *dev))
//	c := cache.New(cache.Options{Logger: log.Component("cache")})
package logging
