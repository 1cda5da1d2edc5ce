// Package oneshot provides request/response generation outside the live
// session: text chat, speech synthesis, image generation, and video
// generation, all backed by the Gemini API through the official Go SDK.
package oneshot

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/droidvox/droidvox/internal/observe"
)

// Default models per generation kind.
const (
	defaultChatModel   = "gemini-2.5-flash"
	defaultSpeechModel = "gemini-2.5-flash-preview-tts"
	defaultImageModel  = "imagen-3.0-generate-002"
	defaultVideoModel  = "veo-3.0-generate-001"

	defaultVoice = "Kore"

	// videoPollInterval is how often a pending video operation is re-checked.
	videoPollInterval = 10 * time.Second
)

// SpeechSampleRate is the PCM rate of synthesised speech returned by Speech.
const SpeechSampleRate = 24000

// Config configures a [Client]. Zero-valued fields select defaults.
type Config struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	ChatModel   string
	SpeechModel string
	ImageModel  string
	VideoModel  string

	// Voice selects the prebuilt voice for speech synthesis.
	Voice string

	// Metrics receives request instrumentation. When nil the package-level
	// default instance is used.
	Metrics *observe.Metrics
}

// Client issues one-shot generation requests. Safe for concurrent use.
type Client struct {
	genai   *genai.Client
	metrics *observe.Metrics

	chatModel   string
	speechModel string
	imageModel  string
	videoModel  string
	voice       string
}

// New creates a Client from cfg.
func New(ctx context.Context, cfg Config) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("oneshot: client: %w", err)
	}

	c := &Client{
		genai:       gc,
		metrics:     cfg.Metrics,
		chatModel:   cfg.ChatModel,
		speechModel: cfg.SpeechModel,
		imageModel:  cfg.ImageModel,
		videoModel:  cfg.VideoModel,
		voice:       cfg.Voice,
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	if c.chatModel == "" {
		c.chatModel = defaultChatModel
	}
	if c.speechModel == "" {
		c.speechModel = defaultSpeechModel
	}
	if c.imageModel == "" {
		c.imageModel = defaultImageModel
	}
	if c.videoModel == "" {
		c.videoModel = defaultVideoModel
	}
	if c.voice == "" {
		c.voice = defaultVoice
	}
	return c, nil
}

// record tracks one request's latency and outcome.
func (c *Client) record(ctx context.Context, kind string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		c.metrics.RecordProviderError(ctx, "gemini", kind)
	}
	c.metrics.RecordProviderRequest(ctx, "gemini", kind, status)
	c.metrics.GenerateDuration.Record(ctx, time.Since(start).Seconds())
}

// Chat returns the model's text reply to a single prompt.
func (c *Client) Chat(ctx context.Context, prompt string) (reply string, err error) {
	start := time.Now()
	defer func() { c.record(ctx, "chat", start, err) }()

	resp, err := c.genai.Models.GenerateContent(ctx, c.chatModel, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("oneshot: chat: %w", err)
	}
	return resp.Text(), nil
}

// Speech synthesises text into raw s16le PCM at [SpeechSampleRate].
func (c *Client) Speech(ctx context.Context, text string) (pcm []byte, err error) {
	start := time.Now()
	defer func() { c.record(ctx, "speech", start, err) }()

	resp, err := c.genai.Models.GenerateContent(ctx, c.speechModel, genai.Text(text),
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &genai.SpeechConfig{
				VoiceConfig: &genai.VoiceConfig{
					PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: c.voice},
				},
			},
		})
	if err != nil {
		return nil, fmt.Errorf("oneshot: speech: %w", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("oneshot: speech: response contains no audio")
}

// Image generates one image and returns its bytes and MIME type.
func (c *Client) Image(ctx context.Context, prompt string) (data []byte, mimeType string, err error) {
	start := time.Now()
	defer func() { c.record(ctx, "image", start, err) }()

	resp, err := c.genai.Models.GenerateImages(ctx, c.imageModel, prompt,
		&genai.GenerateImagesConfig{NumberOfImages: 1})
	if err != nil {
		return nil, "", fmt.Errorf("oneshot: image: %w", err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, "", fmt.Errorf("oneshot: image: response contains no image")
	}
	img := resp.GeneratedImages[0].Image
	return img.ImageBytes, img.MIMEType, nil
}

// Video generates one video and returns its bytes. Video generation is a
// long-running operation; Video polls until completion or ctx expires, so
// callers should bound ctx generously (minutes, not seconds).
func (c *Client) Video(ctx context.Context, prompt string) (data []byte, err error) {
	start := time.Now()
	defer func() { c.record(ctx, "video", start, err) }()

	op, err := c.genai.Models.GenerateVideos(ctx, c.videoModel, prompt, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("oneshot: video: %w", err)
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("oneshot: video: %w", ctx.Err())
		case <-time.After(videoPollInterval):
		}
		op, err = c.genai.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return nil, fmt.Errorf("oneshot: video: poll: %w", err)
		}
	}

	vid, err := videoResult(op)
	if err != nil {
		return nil, err
	}
	if len(vid.VideoBytes) > 0 {
		return vid.VideoBytes, nil
	}
	data, err = c.genai.Files.Download(ctx, vid, nil)
	if err != nil {
		return nil, fmt.Errorf("oneshot: video: download: %w", err)
	}
	return data, nil
}

// videoResult extracts the generated video from a completed operation,
// guarding against malformed results.
func videoResult(op *genai.GenerateVideosOperation) (*genai.Video, error) {
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return nil, fmt.Errorf("oneshot: video: operation completed without a video")
	}
	return op.Response.GeneratedVideos[0].Video, nil
}
