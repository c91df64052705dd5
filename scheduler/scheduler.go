// Package scheduler runs the background jobs of the balance tracker:
// - Price refresh of the stalest cryptos on a short cron
// - Daily total balance snapshot
//
// Neither job ever overlaps with itself. The jobs are implemented in jobs.go
package scheduler
