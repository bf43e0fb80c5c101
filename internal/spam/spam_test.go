package spam

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifier_Rules(t *testing.T) {
	t.Parallel()

	c := New(nil, nil)

	tests := []struct {
		name    string
		author  string
		message string
		want    []Rule
	}{
		{"clean", "John", "Hello world", nil},
		{"suspicious tld", "", "Free offer http://spam.tk", []Rule{RuleSuspiciousTLD}},
		{"tld upper case", "", "visit HTTPS://WIN.ML/now", []Rule{RuleSuspiciousTLD}},
		{"trusted tld", "", "see https://example.com/page", nil},
		{"tld only as prefix", "", "see https://example.tkx", nil},
		{"script tag", "", "<SCRIPT>alert(1)</script>", []Rule{RuleScriptInjection}},
		{"javascript uri", "", "click javascript:alert(1)", []Rule{RuleScriptInjection}},
		{"keyword in message", "", "best Casino bonus", []Rule{RuleKeyword}},
		{"keyword in name", "poker king", "nice post", []Rule{RuleKeyword}},
		{"keyword inside word", "", "incredible article", nil},
		{"several rules", "", "casino at http://x.cf", []Rule{RuleSuspiciousTLD, RuleKeyword}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, c.Match(tt.author, tt.message))
			require.Equal(t, len(tt.want) > 0, c.Classify(tt.author, tt.message))
		})
	}
}

func TestClassifier_CustomLists(t *testing.T) {
	t.Parallel()

	c := New([]string{" .XYZ ", ""}, []string{"Lottery"})

	require.True(t, c.Classify("", "go to http://prize.xyz"))
	require.False(t, c.Classify("", "go to http://prize.tk"), "стандартные TLD заменены списком из конфига")
	require.True(t, c.Classify("", "win the LOTTERY"))
	require.False(t, c.Classify("", "casino"))
}

func TestClassifier_Deterministic(t *testing.T) {
	t.Parallel()

	c := New(nil, nil)
	for i := 0; i < 3; i++ {
		require.True(t, c.Classify("x", "cheap viagra"))
		require.False(t, c.Classify("x", "plain text"))
	}
}
