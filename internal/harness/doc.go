// Package harness runs authoring scenarios against a real engine over a
// fresh in-memory database.
//
// A scenario is a YAML file: a list of authoring steps (create, update,
// publish, delete, comment) with expected outcomes, followed by
// assertions over the resulting graph (lifecycle state, versions,
// pending set, inbound references, publish findings).
//
// Interactions are addressed by NAME inside a scenario; the harness
// maps names to the ids assigned at creation, so scenario files stay
// readable and stable across runs. Deterministic clock and id helpers
// make the event trace byte-stable, which is what the golden snapshot
// comparison relies on.
package harness
