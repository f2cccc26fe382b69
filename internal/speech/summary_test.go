package speech

import (
	"testing"
	"time"

	"github.com/VamshiS123/visionv/pkg/narration"
)

func obs(text string, p narration.Priority) narration.Observation {
	return narration.Observation{ID: text, Text: text, Priority: p, CreatedAt: time.Now()}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		batch []narration.Observation
		want  string
	}{
		{
			name:  "empty batch",
			batch: nil,
			want:  "",
		},
		{
			name:  "blank texts only",
			batch: []narration.Observation{obs("   ", narration.PriorityLow)},
			want:  "",
		},
		{
			name:  "single observation spoken as-is",
			batch: []narration.Observation{obs("A cyclist passes on the left", narration.PriorityMedium)},
			want:  "A cyclist passes on the left",
		},
		{
			name: "two observations joined with Also",
			batch: []narration.Observation{
				obs("A bus stops at the corner", narration.PriorityMedium),
				obs("The light turns green", narration.PriorityMedium),
			},
			want: "A bus stops at the corner. Also, the light turns green",
		},
		{
			name: "three observations joined with periods",
			batch: []narration.Observation{
				obs("A dog runs across the grass", narration.PriorityMedium),
				obs("Two people sit on a bench", narration.PriorityMedium),
				obs("A kiosk sells coffee", narration.PriorityMedium),
			},
			want: "A dog runs across the grass. Two people sit on a bench. A kiosk sells coffee",
		},
		{
			name: "more urgent observations come first",
			batch: []narration.Observation{
				obs("A tree sways in the wind", narration.PriorityLow),
				obs("A car is backing toward you", narration.PriorityCritical),
				obs("A group waits at the crossing", narration.PriorityMedium),
			},
			want: "A car is backing toward you. A group waits at the crossing. A tree sways in the wind",
		},
		{
			name: "fourth observation is truncated away",
			batch: []narration.Observation{
				obs("First thing here", narration.PriorityHigh),
				obs("Second thing here", narration.PriorityHigh),
				obs("Third thing here", narration.PriorityHigh),
				obs("Fourth thing never spoken", narration.PriorityLow),
			},
			want: "First thing here. Second thing here. Third thing here",
		},
		{
			name: "near-identical texts collapse",
			batch: []narration.Observation{
				obs("A man walks a dog", narration.PriorityMedium),
				obs("a man   walks a DOG", narration.PriorityMedium),
			},
			want: "A man walks a dog",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Summarize(tc.batch); got != tc.want {
				t.Errorf("Summarize() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSummarizeKeepsArrivalOrderWithinPriority(t *testing.T) {
	t.Parallel()

	got := Summarize([]narration.Observation{
		obs("First medium event", narration.PriorityMedium),
		obs("Second medium event", narration.PriorityMedium),
	})
	want := "First medium event. Also, second medium event"
	if got != want {
		t.Errorf("Summarize() = %q, want %q", got, want)
	}
}
