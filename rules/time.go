//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// TimeSinceOverNowSub flags time.Now().Sub(t) which is time.Since(t) with
// extra steps.
//
// Old pattern:
//
//	elapsed := time.Now().Sub(start)
//
// Expected pattern:
//
//	elapsed := time.Since(start)
func TimeSinceOverNowSub(m dsl.Matcher) {
	m.Match(
		`time.Now().Sub($t)`,
	).
		Report("use time.Since($t) instead of time.Now().Sub($t)").
		Suggest("time.Since($t)")
}

// TimeUntilOverSubNow flags t.Sub(time.Now()), the mirror case.
func TimeUntilOverSubNow(m dsl.Matcher) {
	m.Match(
		`$t.Sub(time.Now())`,
	).
		Report("use time.Until($t) instead of $t.Sub(time.Now())").
		Suggest("time.Until($t)")
}
