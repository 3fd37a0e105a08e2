// Package report assembles the JSON document produced by every analysis
// cycle: point snapshots, spikes, ranked bottlenecks with module suggestions,
// anomalies, correlations and the host facts they were computed from.
//
// Documents are validated against an embedded JSON Schema (see Schema) and
// individual values can be pulled out with Select, which accepts gjson paths
// and the simple JSONPath forms "$.a.b[0]" and "$['a']".
package report
