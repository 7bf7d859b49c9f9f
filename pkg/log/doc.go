/*
Package log provides structured logging for FlexGraph using zerolog.

A single global Logger is configured once via Init; every other package
derives a component-scoped child logger from it (WithComponent,
WithSession, WithTxn, WithLabel) instead of holding its own logger state.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	sessionLog := log.WithSession(sessionID)
	sessionLog.Info().Uint8("procedure_id", id).Msg("eval")
*/
package log
