// Package workflow implements the graph execution engine: validated
// workflow definitions made of tool, condition, parallel, wait, and
// transform nodes, walked from a start node with per-node state, retries,
// and outcome-keyed edges.
//
// Tool nodes delegate to the capability registry in package tool. Transform
// scripts run inside a bounded sandbox because definitions may originate
// from semi-trusted sources. Run state is best-effort mirrored to an
// external cache for inspection; the in-process RunState stays
// authoritative.
package workflow
