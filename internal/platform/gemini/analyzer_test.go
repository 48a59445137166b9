package gemini

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/tahfidz-api/internal/analysis"
	"github.com/phrazzld/tahfidz-api/internal/config"
	"github.com/phrazzld/tahfidz-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	calls    int
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.config = cfg
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: text}}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func ikhlasRange() *domain.ContentRange {
	return &domain.ContentRange{
		Ref:        domain.QuranRef{SurahNumber: 112, AyahStart: 1, AyahEnd: 2},
		Collection: domain.Collection{Family: domain.FamilyQuran, ID: "112", Title: "Al-Ikhlas", UnitCount: 4},
		Units: []domain.Unit{
			{Number: 1, Text: "قُلْ هُوَ اللَّهُ أَحَدٌ"},
			{Number: 2, Text: "اللَّهُ الصَّمَدُ"},
		},
		Text: "قُلْ هُوَ اللَّهُ أَحَدٌ اللَّهُ الصَّمَدُ",
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{GeminiAPIKey: "test-key", ModelName: "gemini-2.0-flash", TimeoutSeconds: 5}
}

const goodJSON = `{
  "score": 86,
  "transcription": "قل هو الله احد الله الصمد",
  "summary": "Bacaan lancar.",
  "overallComment": "Bagus, pertahankan.",
  "itemComments": [
    {"number": 1, "status": "correct", "comment": "tepat"},
    {"number": 2, "status": "minor_error", "errors": [{"word": "الصَّمَدُ", "readAs": "الصمد", "type": "harakat"}]}
  ],
  "errors": [{"position": 5, "word": "الصَّمَدُ", "expected": "الصَّمَدُ", "actual": "الصمد", "type": "pronunciation", "severity": "minor"}],
  "suggestions": ["perhatikan harakat akhir"]
}`

func TestAnalyze_Success(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{resp: textResponse(goodJSON)}
	a, err := newAnalyzer(nil, fake, testConfig())
	require.NoError(t, err)

	got, err := a.Analyze(context.Background(), analysis.Request{
		Range:      ikhlasRange(),
		Recitation: analysis.Recitation{Audio: []byte("RIFF"), MimeType: "audio/wav"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "gemini-2.0-flash", fake.model)
	assert.Equal(t, "application/json", fake.config.ResponseMIMEType)

	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0].Text, "قُلْ هُوَ اللَّهُ أَحَدٌ")
	assert.Contains(t, parts[0].Text, "Surah Al-Ikhlas (112)")
	assert.Contains(t, parts[0].Text, "Tajweed")
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "audio/wav", parts[1].InlineData.MIMEType)

	assert.Equal(t, 86.0, got.Score)
	assert.Equal(t, "قل هو الله احد الله الصمد", got.Transcription)
	require.Len(t, got.ItemComments, 2)
	require.Len(t, got.ItemComments[1].Errors, 1)
	assert.Equal(t, "الصمد", got.ItemComments[1].Errors[0].ReadAs)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "minor", got.Errors[0].Severity)
	assert.Equal(t, []string{"perhatikan harakat akhir"}, got.Suggestions)
}

func TestAnalyze_TranscriptOnly(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{resp: textResponse("```json\n" + goodJSON + "\n```")}
	a, err := newAnalyzer(nil, fake, testConfig())
	require.NoError(t, err)

	transcript := "قل هو الله احد"
	got, err := a.Analyze(context.Background(), analysis.Request{
		Range:      ikhlasRange(),
		Recitation: analysis.Recitation{Transcript: transcript},
	})
	require.NoError(t, err)

	assert.Len(t, fake.contents[0].Parts, 1)
	assert.Contains(t, fake.contents[0].Parts[0].Text, transcript)
	assert.Equal(t, transcript, got.Transcription)
}

func TestAnalyze_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		err     error
		wantErr error
	}{
		{"transport error", nil, errors.New("503 Service Unavailable"), analysis.ErrAnalysisFailed},
		{"nil response", nil, nil, analysis.ErrInvalidResponse},
		{"no candidates", &genai.GenerateContentResponse{}, nil, analysis.ErrInvalidResponse},
		{
			"safety finish",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			nil,
			analysis.ErrContentBlocked,
		},
		{
			"prompt blocked",
			&genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "SAFETY"}},
			nil,
			analysis.ErrContentBlocked,
		},
		{"not json", textResponse("maaf, saya tidak bisa"), nil, analysis.ErrInvalidResponse},
		{"missing score", textResponse(`{"summary": "ok"}`), nil, analysis.ErrInvalidResponse},
		{"broken json", textResponse(`{"score": 80,`), nil, analysis.ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeModels{resp: tt.resp, err: tt.err}
			a, err := newAnalyzer(nil, fake, testConfig())
			require.NoError(t, err)

			got, err := a.Analyze(context.Background(), analysis.Request{
				Range:      ikhlasRange(),
				Recitation: analysis.Recitation{Transcript: "قل"},
			})
			assert.Nil(t, got)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestAnalyze_InvalidRequestSkipsModel(t *testing.T) {
	t.Parallel()

	fake := &fakeModels{resp: textResponse(goodJSON)}
	a, err := newAnalyzer(nil, fake, testConfig())
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), analysis.Request{Range: ikhlasRange()})
	assert.ErrorIs(t, err, analysis.ErrInvalidRequest)
	assert.ErrorIs(t, err, domain.ErrEmptyRecitation)

	_, err = a.Analyze(context.Background(), analysis.Request{Recitation: analysis.Recitation{Transcript: "x"}})
	assert.ErrorIs(t, err, analysis.ErrInvalidRequest)

	assert.Zero(t, fake.calls)
}

func TestNewAnalyzer_Config(t *testing.T) {
	t.Parallel()

	t.Run("missing model", func(t *testing.T) {
		cfg := testConfig()
		cfg.ModelName = ""
		_, err := newAnalyzer(nil, &fakeModels{}, cfg)
		assert.ErrorIs(t, err, analysis.ErrInvalidConfig)
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := testConfig()
		cfg.GeminiAPIKey = ""
		_, err := NewAnalyzer(context.Background(), nil, cfg)
		assert.ErrorIs(t, err, analysis.ErrInvalidConfig)
	})

	t.Run("unreadable template", func(t *testing.T) {
		cfg := testConfig()
		cfg.PromptTemplatePath = filepath.Join(t.TempDir(), "missing.tmpl")
		_, err := newAnalyzer(nil, &fakeModels{}, cfg)
		assert.ErrorIs(t, err, analysis.ErrInvalidConfig)
	})

	t.Run("template override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompt.tmpl")
		require.NoError(t, os.WriteFile(path, []byte("{{.FamilyLabel}}|{{.Start}}-{{.End}}|{{.ExpectedText}}"), 0o600))

		cfg := testConfig()
		cfg.PromptTemplatePath = path
		fake := &fakeModels{resp: textResponse(goodJSON)}
		a, err := newAnalyzer(nil, fake, cfg)
		require.NoError(t, err)

		_, err = a.Analyze(context.Background(), analysis.Request{
			Range:      ikhlasRange(),
			Recitation: analysis.Recitation{Transcript: "قل"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Al-Quran|1-2|"+ikhlasRange().Text, fake.contents[0].Parts[0].Text)
	})
}

func TestPromptOmitsTajweedOutsideQuran(t *testing.T) {
	t.Parallel()

	tmpl, err := loadTemplate("")
	require.NoError(t, err)

	r := &domain.ContentRange{
		Ref:        domain.VerseRef{KitabID: "alfiyyah", BaitStart: 1, BaitEnd: 2},
		Collection: domain.Collection{Family: domain.FamilyVerseCollection, ID: "alfiyyah", Title: "Alfiyyah Ibn Malik", UnitCount: 1002},
		Text:       "قال محمد هو ابن مالك\nأحمد ربي الله خير مالك",
	}
	out, err := renderPrompt(tmpl, newPromptData(analysis.Request{Range: r, Recitation: analysis.Recitation{Transcript: "قال"}}))
	require.NoError(t, err)

	assert.Contains(t, out, "Jenis Hafalan: Matan")
	assert.Contains(t, out, "Alfiyyah Ibn Malik (bait 1 - 2)")
	assert.NotContains(t, out, "Tajweed")
}
