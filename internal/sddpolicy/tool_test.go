package sddpolicy

import "testing"

// #region parse-tests

func TestParseValidationOutput_Valid(t *testing.T) {
	summary := parseValidationOutput(`{
		"summary": {
			"totals": {"items": 5, "failed": 1, "passed": 4},
			"byLevel": {"ERROR": 2, "WARNING": 3, "INFO": 1}
		}
	}`)

	if !summary.ParseOK {
		t.Fatal("expected ParseOK")
	}
	if summary.Totals.Items != 5 || summary.Totals.Failed != 1 || summary.Totals.Passed != 4 {
		t.Errorf("unexpected totals %+v", summary.Totals)
	}
	if summary.Issues.Errors != 2 || summary.Issues.Warnings != 3 || summary.Issues.Infos != 1 {
		t.Errorf("unexpected issues %+v", summary.Issues)
	}
}

func TestParseValidationOutput_Garbage(t *testing.T) {
	summary := parseValidationOutput("openspec: command crashed")
	if summary.ParseOK {
		t.Error("expected ParseOK false for non-JSON output")
	}
}

func TestParseValidationOutput_EmptySummary(t *testing.T) {
	summary := parseValidationOutput(`{}`)
	if !summary.ParseOK {
		t.Error("expected valid JSON without summary to still parse")
	}
	if summary.Totals.Items != 0 || summary.Issues.Errors != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
}

// #endregion parse-tests

// #region compatibility-tests

func TestEvaluateCompatibility_NotInstalled(t *testing.T) {
	compat := EvaluateCompatibility(Installation{})
	if compat.Compatible {
		t.Error("expected missing installation to be incompatible")
	}
	if compat.MinimumVersion != MinimumVersion {
		t.Errorf("expected minimum carried, got %s", compat.MinimumVersion)
	}
}

func TestEvaluateCompatibility_NoSemver(t *testing.T) {
	compat := EvaluateCompatibility(Installation{Installed: true, Version: "development build"})
	if compat.Compatible {
		t.Error("expected unparseable version to be incompatible")
	}
	if compat.ParsedVersion != "" {
		t.Errorf("expected no parsed version, got %s", compat.ParsedVersion)
	}
}

func TestEvaluateCompatibility_EmbeddedSemver(t *testing.T) {
	compat := EvaluateCompatibility(Installation{Installed: true, Version: "openspec/2.3.4 (linux)"})
	if !compat.Compatible {
		t.Error("expected embedded semver to be extracted and pass")
	}
	if compat.ParsedVersion != "2.3.4" {
		t.Errorf("expected 2.3.4 extracted, got %s", compat.ParsedVersion)
	}
}

func TestEvaluateCompatibility_BelowMinimum(t *testing.T) {
	compat := EvaluateCompatibility(Installation{Installed: true, Version: "1.1.0"})
	if compat.Compatible {
		t.Error("expected version below minimum to be incompatible")
	}
}

func TestEvaluateCompatibility_AtMinimum(t *testing.T) {
	compat := EvaluateCompatibility(Installation{Installed: true, Version: MinimumVersion})
	if !compat.Compatible {
		t.Error("expected version equal to minimum to pass")
	}
}

func TestCompareSemver(t *testing.T) {
	cases := []struct {
		left, right string
		want        int
	}{
		{"1.1.1", "1.1.1", 0},
		{"1.1.2", "1.1.1", 1},
		{"1.1.0", "1.1.1", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.10.0", "1.9.9", 1}, // numeric, not lexical
		{"1.1", "1.1.0", 0},    // missing component reads as zero
	}
	for _, tc := range cases {
		if got := compareSemver(tc.left, tc.right); got != tc.want {
			t.Errorf("compareSemver(%q, %q) = %d, want %d", tc.left, tc.right, got, tc.want)
		}
	}
}

// #endregion compatibility-tests
