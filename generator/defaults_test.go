package generator

import "testing"

func TestDefaultPlanPurposes(t *testing.T) {
	plan, err := DefaultPlan(testRequest(MaxEmails, MaxSecondary))
	if err != nil {
		t.Fatalf("DefaultPlan: %v", err)
	}
	var emails, secondary []string
	for _, it := range plan.Items {
		if it.Channel == ChannelEmail {
			emails = append(emails, it.Purpose)
		} else {
			secondary = append(secondary, it.Purpose)
		}
	}

	last := defaultEmailPurposes[len(defaultEmailPurposes)-1]
	if emails[0] != defaultEmailPurposes[0] || emails[len(emails)-1] != last {
		t.Errorf("emails should open and close with fixed purposes: %v", emails)
	}
	for i := 1; i < len(emails)-1; i++ {
		if emails[i] == last {
			t.Errorf("middle email %d uses the closing purpose", i)
		}
		if i > 1 && emails[i] == emails[i-1] {
			t.Errorf("emails %d and %d repeat %q", i-1, i, emails[i])
		}
	}
	if secondary[len(secondary)-1] != defaultSecondaryPurposes[len(defaultSecondaryPurposes)-1] {
		t.Errorf("secondary items should end with the final nudge: %v", secondary)
	}
}

func TestDefaultPlanShortSequences(t *testing.T) {
	tests := []struct {
		emails int
		want   []string
	}{
		{1, []string{defaultEmailPurposes[0]}},
		{2, []string{defaultEmailPurposes[0], defaultEmailPurposes[4]}},
		{3, []string{defaultEmailPurposes[0], defaultEmailPurposes[1], defaultEmailPurposes[4]}},
	}
	for _, tt := range tests {
		plan, err := DefaultPlan(testRequest(tt.emails, 0))
		if err != nil {
			t.Fatalf("DefaultPlan(%d): %v", tt.emails, err)
		}
		for i, it := range plan.Items {
			if it.Purpose != tt.want[i] {
				t.Errorf("%d emails: item %d purpose = %q, want %q", tt.emails, i, it.Purpose, tt.want[i])
			}
		}
	}
}
