// Package models defines the core domain models for tableside.
//
// # Order side
//
//   - Order: one placed table order, the aggregate root for its line items
//   - OrderItem: a single line on an order with its own kitchen/cashier status
//
// An order's status is never set directly. It is derived from the statuses of its
// items (see calculator.AggregateStatus) and written back by the coordinator.
//
// # Settlement side
//
//   - SettlementSession: how one order's total is being divided among paying participants
//   - Share: one participant's recorded contribution within a session
//
// Participants are identified by an opaque, device-stable string supplied by the
// client. There is at most one Share per participant per session.
//
// # Tables
//
//   - MergeGroup: a set of physical tables temporarily billed as one unit
//
// Merge groups and guest presence live only in memory (see package tables).
//
// # Status domains
//
// Every status is a closed enum (ItemStatus, SplitMode, PaymentStatus) with a fixed
// wire name table. Unknown names are rejected at parse time instead of flowing
// through as free-form strings.
package models
