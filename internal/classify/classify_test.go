package classify

import "testing"

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantName string
		wantType string
	}{
		{
			name:     "distance first",
			filename: "3.1mi Run.tcx",
			wantName: "3.1mi Run",
			wantType: "Run",
		},
		{
			name:     "distance first with collision suffix",
			filename: "3.1mi Run (2).tcx",
			wantName: "3.1mi Run",
			wantType: "Run",
		},
		{
			name:     "distance first multi word type",
			filename: "5.0mi Trail Run.tcx",
			wantName: "5.0mi Trail Run",
			wantType: "Trail Run",
		},
		{
			name:     "verb first run",
			filename: "Ran 4.02 mi on 11_10_18.tcx",
			wantName: "4.02mi Run",
			wantType: "Run",
		},
		{
			name:     "verb first hike",
			filename: "Hiked 6.5 mi on 03_22_19.tcx",
			wantName: "6.5mi Hike",
			wantType: "Hike",
		},
		{
			name:     "verb first ride",
			filename: "Rode 20.1 mi on 07_04_20.tcx",
			wantName: "20.1mi Ride",
			wantType: "Ride",
		},
		{
			name:     "verb first walk",
			filename: "Walked 1.2 mi on 12_25_18.tcx",
			wantName: "1.2mi Walk",
			wantType: "Walk",
		},
		{
			name:     "unmapped verb preserves distance",
			filename: "Swam 1.0 mi on 01_01_20.tcx",
			wantName: "1.0mi Other",
			wantType: "Other",
		},
		{
			name:     "unparseable filename",
			filename: "workout_final.tcx",
			wantName: "workout_final",
			wantType: "Other",
		},
		{
			name:     "uppercase extension",
			filename: "3.1mi Run.TCX",
			wantName: "3.1mi Run",
			wantType: "Run",
		},
		{
			name:     "no extension",
			filename: "3.1mi Run",
			wantName: "3.1mi Run",
			wantType: "Run",
		},
		{
			name:     "empty string",
			filename: "",
			wantName: "",
			wantType: "Other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(tt.filename)
			if got.DisplayName != tt.wantName {
				t.Errorf("Filename(%q).DisplayName = %q, want %q", tt.filename, got.DisplayName, tt.wantName)
			}
			if got.ActivityType != tt.wantType {
				t.Errorf("Filename(%q).ActivityType = %q, want %q", tt.filename, got.ActivityType, tt.wantType)
			}
		})
	}
}

func TestFilenameIsDeterministic(t *testing.T) {
	for range 3 {
		got := Filename("Ran 4.02 mi on 11_10_18.tcx")
		if got.DisplayName != "4.02mi Run" || got.ActivityType != "Run" {
			t.Fatalf("Filename() not deterministic: %+v", got)
		}
	}
}
