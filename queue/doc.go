// Package queue provides Redis-backed work queues for standalone workers.
//
// Under scheduler control a worker receives its data lines over standard
// input. Without a scheduler, the same worker can instead drain a Redis
// list: submitters Push items, workers Pop them (blocking), and completion
// results flow back over a pub/sub channel keyed by job. Source adapts a
// queue to the worker package's pull interface so the business logic cannot
// tell the two modes apart.
//
// The queue keeps the stdio protocol's liveness idea as well: Heartbeat
// refreshes a short-TTL health key, so an operator can tell a blocked worker
// from a dead one.
package queue
