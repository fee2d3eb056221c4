// Package harness runs YAML query scenarios against a fresh in-memory store.
//
// A scenario seeds entities and then runs steps. Each step is either a query
// (expect_keys) or an existence check (expect_exists), written with the
// textual constraint syntax of package filterexpr:
//
//	name: adults_by_age
//	description: Adults, oldest first
//	seed:
//	  - kind: Widget
//	    name: a
//	    properties: {name: foo, age: 30}
//	steps:
//	  - name: adults
//	    kind: Widget
//	    where: ["age >= 18"]
//	    sort: ["age:desc"]
//	    expect_keys: [a]
//
// Run reports per-step mismatches in Result.Errors. AssertGolden snapshots
// every step's plan and SQL under testdata/golden so planner or compiler
// changes show up as golden diffs.
package harness
