//go:build ruleguard

// Package gorules holds the ruleguard checks run by gocritic on this module.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// DeferredTimeSince detects time.Since evaluated when the defer statement
// runs instead of when the function returns.
//
// Broken pattern:
//
//	defer recorder.ObserveDuration(time.Since(start).Seconds(), status)
//
// Correct pattern:
//
//	defer func() { recorder.ObserveDuration(time.Since(start).Seconds(), status) }()
func DeferredTimeSince(m dsl.Matcher) {
	m.Match(
		`defer $fn(time.Since($start))`,
		`defer $fn(time.Since($start).Seconds(), $*args)`,
		`defer $fn($*args, time.Since($start))`,
	).
		Report("time.Since($start) is evaluated at defer time, not function exit; wrap in func() to measure actual duration")
}

// TestingContext detects context.Background in tests.
//
// See: https://pkg.go.dev/testing#T.Context
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$fn(context.Background(), $*args)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of context.Background()")
}

// TestingTempDir detects temporary directories and environment changes in
// tests that are not cleaned up by the testing package.
func TestingTempDir(m dsl.Matcher) {
	m.Match(`os.MkdirTemp($*_)`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.TempDir() so the directory is removed")

	m.Match(`os.Setenv($key, $value)`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Setenv($key, $value) so the variable is restored")
}

// OSFilesystemInLibrary detects direct filesystem access in packages that
// take an afero.Fs, which bypasses the in-memory filesystem used in tests.
func OSFilesystemInLibrary(m dsl.Matcher) {
	m.Match(
		`os.Open($path)`,
		`os.ReadFile($path)`,
		`os.Create($path)`,
	).
		Where(m.File().PkgPath.Matches(`/internal/(via|coco|imagemeta|converter)$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report("use the afero.Fs passed in instead of the os package")
}

// JSONFloatCoordinates detects coordinates decoded to float64, which loses
// the literal written in the source file.
func JSONFloatCoordinates(m dsl.Matcher) {
	m.Match(`json.Number($x.String())`).
		Report("$x is already a json.Number")

	m.Match(`json.Number(strconv.FormatFloat($*_))`).
		Where(m.File().PkgPath.Matches(`/internal/converter$`)).
		Report("keep the source literal of the coordinate instead of reformatting it")
}

// MinMaxBuiltin suggests the built-in min and max over math conversions.
func MinMaxBuiltin(m dsl.Matcher) {
	m.Match(`int(math.Min(float64($a), float64($b)))`).
		Report("use min($a, $b) instead of int(math.Min(float64(...)))").
		Suggest("min($a, $b)")

	m.Match(`int(math.Max(float64($a), float64($b)))`).
		Report("use max($a, $b) instead of int(math.Max(float64(...)))").
		Suggest("max($a, $b)")
}
