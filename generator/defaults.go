package generator

import "fmt"

var (
	defaultEmailDays     = []int{1, 3, 7, 12, 18, 25, 33, 42}
	defaultSecondaryDays = []int{2, 5, 10, 16, 23}

	defaultEmailPurposes = []string{
		"Open with the signal and one relevant pain point",
		"Share proof that peers solved the same problem",
		"Offer a concrete, low-effort next step",
		"Reframe the cost of doing nothing",
		"Break-up email: close the loop politely",
	}
	defaultSecondaryPurposes = []string{
		"Connection note that mentions the signal",
		"Short follow-up pointing to the latest email",
		"Final nudge with a single question",
	}
)

// MaxEmails and MaxSecondary bound the request shapes the default plan covers.
var (
	MaxEmails    = len(defaultEmailDays)
	MaxSecondary = len(defaultSecondaryDays)
)

// DefaultPlan returns the hard-coded plan for the requested counts. Supporting
// facts are assigned round-robin to emails.
func DefaultPlan(req GenerationRequest) (SequencePlan, error) {
	if req.EmailCount < 0 || req.SecondaryCount < 0 || req.TotalItems() == 0 {
		return SequencePlan{}, fmt.Errorf("no default plan for %d emails and %d secondary items", req.EmailCount, req.SecondaryCount)
	}
	if req.EmailCount > MaxEmails || req.SecondaryCount > MaxSecondary {
		return SequencePlan{}, fmt.Errorf("no default plan beyond %d emails and %d secondary items", MaxEmails, MaxSecondary)
	}

	plan := SequencePlan{Items: make([]ItemSpec, 0, req.TotalItems())}
	for i := 0; i < req.EmailCount; i++ {
		spec := ItemSpec{
			DayOffset:         defaultEmailDays[i],
			Channel:           ChannelEmail,
			Purpose:           pick(defaultEmailPurposes, i, req.EmailCount),
			SignalIntegration: "Reference the signal in the first sentence",
		}
		if i > 0 {
			spec.SignalIntegration = "Mention the signal briefly as context"
		}
		if len(req.Facts) > 0 {
			spec.FactRef = req.Facts[i%len(req.Facts)].Ref()
		}
		plan.Items = append(plan.Items, spec)
	}
	for i := 0; i < req.SecondaryCount; i++ {
		plan.Items = append(plan.Items, ItemSpec{
			DayOffset:         defaultSecondaryDays[i],
			Channel:           ChannelSecondary,
			Purpose:           pick(defaultSecondaryPurposes, i, req.SecondaryCount),
			SignalIntegration: "One short clause about the signal",
		})
	}
	return plan, nil
}

// pick opens with the first purpose, ends with the last one so sequences
// always close, and cycles through the middle purposes in between.
func pick(purposes []string, i, n int) string {
	last := len(purposes) - 1
	switch {
	case i == 0:
		return purposes[0]
	case i == n-1:
		return purposes[last]
	default:
		return purposes[1+(i-1)%(last-1)]
	}
}
