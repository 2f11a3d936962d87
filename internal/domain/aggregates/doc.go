// Package aggregates defines the write-boundary contracts and error codes
// shared by the topic schedule and learning model aggregates.
package aggregates
