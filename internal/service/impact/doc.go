// Package impact implements decision impact measurement for logged
// optimization actions.
//
// The engine joins each committed action to the metric periods surrounding
// its action date, computes a counterfactual (no-action) expectation for the
// after window, and emits one ImpactRow per measurable action. The summarizer
// rolls a cohort of rows into a point estimate with a confidence interval.
//
// The package depends on reader interfaces defined here and should never
// import from api/. Reader implementations live in repository/postgres/.
package impact
