package oneshot

import (
	"testing"

	"google.golang.org/genai"
)

func TestVideoResult_ReturnsVideo(t *testing.T) {
	op := &genai.GenerateVideosOperation{
		Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{
				{Video: &genai.Video{VideoBytes: []byte{0x01, 0x02}}},
			},
		},
	}

	vid, err := videoResult(op)
	if err != nil {
		t.Fatalf("videoResult: %v", err)
	}
	if len(vid.VideoBytes) != 2 {
		t.Errorf("video bytes = %v", vid.VideoBytes)
	}
}

func TestVideoResult_MalformedOperations(t *testing.T) {
	ops := map[string]*genai.GenerateVideosOperation{
		"nil response": {},
		"no videos":    {Response: &genai.GenerateVideosResponse{}},
		"nil video": {Response: &genai.GenerateVideosResponse{
			GeneratedVideos: []*genai.GeneratedVideo{{}},
		}},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			if _, err := videoResult(op); err == nil {
				t.Error("expected an error for a malformed operation result")
			}
		})
	}
}
