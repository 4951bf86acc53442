package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/anonto42/storydesk/backend/internal/models"
	"github.com/anonto42/storydesk/backend/internal/repositories"
	"github.com/anonto42/storydesk/backend/internal/uploads"
	"github.com/anonto42/storydesk/backend/validators"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Message string                 `json:"message"`
	Errors  validators.FieldErrors `json:"errors"`
	Token   string                 `json:"token"`
}

type testServer struct {
	e        *echo.Echo
	stories  *repositories.MemoryStoryRepository
	episodes *repositories.MemoryEpisodeRepository
	objects  *uploads.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		e:        echo.New(),
		stories:  repositories.NewMemoryStoryRepository(),
		episodes: repositories.NewMemoryEpisodeRepository(),
		objects:  uploads.NewMemoryStore(),
	}
	coordinator, err := uploads.NewCoordinator(ts.objects, uploads.Config{
		Bucket:        "media",
		Root:          "stories",
		PublicBaseURL: "https://cdn.example.com",
	})
	if err != nil {
		t.Fatalf("NewCoordinator: %v", err)
	}
	ts.e.Validator = validators.NewValidator()
	ts.e.HTTPErrorHandler = NewHTTPErrorHandler(zap.NewNop())

	api := ts.e.Group("/api/v1")
	NewStoryHandler(ts.stories, ts.episodes, validators.SchemaHomepage).RegisterStoryRoutes(api)
	NewEpisodeHandler(ts.stories, ts.episodes).RegisterEpisodeRoutes(api)
	NewUploadHandler(coordinator).RegisterUploadRoutes(api)
	NewHomepageHandler(ts.stories).RegisterHomepageRoutes(api)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return ts.serve(t, req)
}

func (ts *testServer) serve(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, env
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
}

func storyBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":            title,
		"language":         "en",
		"banner_image_url": "https://cdn/b.png",
		"tile_image_url":   "https://cdn/t.png",
		"homepage_rank":    1,
	}
}

func (ts *testServer) createStory(t *testing.T, body map[string]interface{}) models.Story {
	t.Helper()
	code, env := ts.do(t, http.MethodPost, "/api/v1/stories", body)
	if code != http.StatusCreated {
		t.Fatalf("create story status=%d body=%+v", code, env)
	}
	var s models.Story
	decode(t, env.Data, &s)
	return s
}

func (ts *testServer) createEpisode(t *testing.T, storyID string, body map[string]interface{}) models.Episode {
	t.Helper()
	code, env := ts.do(t, http.MethodPost, "/api/v1/stories/"+storyID+"/episodes", body)
	if code != http.StatusCreated {
		t.Fatalf("create episode status=%d body=%+v", code, env)
	}
	var ep models.Episode
	decode(t, env.Data, &ep)
	return ep
}

func TestCreateStory(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createStory(t, storyBody("  Night Train "))
	if s.ID == "" || s.Title != "Night Train" || s.HomepageRank == nil || *s.HomepageRank != 1 {
		t.Fatalf("story=%+v", s)
	}
	if s.Rank != nil || s.Description != nil || s.CoverImageURL != nil {
		t.Fatalf("optional fields should be null: %+v", s)
	}
}

func TestCreateStoryValidation(t *testing.T) {
	ts := newTestServer(t)
	body := storyBody("")
	body["language"] = "fr"
	delete(body, "homepage_rank")

	code, env := ts.do(t, http.MethodPost, "/api/v1/stories", body)
	if code != http.StatusUnprocessableEntity || env.Success {
		t.Fatalf("status=%d env=%+v want 422", code, env)
	}
	for _, want := range []struct {
		field string
		kind  validators.Kind
	}{
		{"title", validators.MissingRequiredField},
		{"language", validators.InvalidEnum},
		{"homepage_rank", validators.MissingRequiredField},
	} {
		if !env.Errors.Has(want.field, want.kind) {
			t.Fatalf("errors=%v missing %s/%s", env.Errors, want.field, want.kind)
		}
	}
	if list, _ := ts.stories.List(context.Background(), repositories.StoryFilter{}); len(list) != 0 {
		t.Fatalf("invalid story was stored")
	}
}

func TestUpdateStory(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createStory(t, storyBody("A"))

	body := storyBody("B")
	body["rank"] = "4"
	body["description"] = "about"
	code, env := ts.do(t, http.MethodPut, "/api/v1/stories/"+s.ID, body)
	if code != http.StatusOK {
		t.Fatalf("status=%d env=%+v", code, env)
	}
	var got models.Story
	decode(t, env.Data, &got)
	if got.ID != s.ID || got.Title != "B" || got.Rank == nil || *got.Rank != 4 || got.Description == nil {
		t.Fatalf("updated=%+v", got)
	}
	if !got.CreatedAt.Equal(s.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", s.CreatedAt, got.CreatedAt)
	}

	if code, _ := ts.do(t, http.MethodPut, "/api/v1/stories/missing", body); code != http.StatusNotFound {
		t.Fatalf("missing story status=%d want=404", code)
	}
}

func TestPublishAndDeleteStory(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createStory(t, storyBody("A"))

	code, env := ts.do(t, http.MethodPatch, "/api/v1/stories/"+s.ID+"/publish", map[string]bool{"is_published": true})
	if code != http.StatusOK {
		t.Fatalf("publish status=%d env=%+v", code, env)
	}
	var got models.Story
	decode(t, env.Data, &got)
	if !got.IsPublished {
		t.Fatalf("story not published")
	}
	if code, _ := ts.do(t, http.MethodPatch, "/api/v1/stories/"+s.ID+"/publish", map[string]string{}); code != http.StatusUnprocessableEntity {
		t.Fatalf("empty publish status=%d want=422", code)
	}

	if code, _ := ts.do(t, http.MethodDelete, "/api/v1/stories/"+s.ID, nil); code != http.StatusOK {
		t.Fatalf("delete status=%d", code)
	}
	if code, _ := ts.do(t, http.MethodGet, "/api/v1/stories/"+s.ID, nil); code != http.StatusNotFound {
		t.Fatalf("get deleted status=%d want=404", code)
	}
	if code, _ := ts.do(t, http.MethodDelete, "/api/v1/stories/"+s.ID, nil); code != http.StatusNotFound {
		t.Fatalf("second delete status=%d want=404", code)
	}
}

func TestListStories(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createStory(t, storyBody("a"))
	ts.createStory(t, storyBody("b"))
	ts.do(t, http.MethodPatch, "/api/v1/stories/"+a.ID+"/publish", map[string]bool{"is_published": true})

	code, env := ts.do(t, http.MethodGet, "/api/v1/stories", nil)
	var all []models.Story
	decode(t, env.Data, &all)
	if code != http.StatusOK || len(all) != 2 || all[0].Title != "b" {
		t.Fatalf("status=%d stories=%+v want newest first", code, all)
	}

	_, env = ts.do(t, http.MethodGet, "/api/v1/stories?published=true", nil)
	var published []models.Story
	decode(t, env.Data, &published)
	if len(published) != 1 || published[0].ID != a.ID {
		t.Fatalf("published=%+v", published)
	}

	for _, q := range []string{"published=maybe", "language=fr", "order=title"} {
		if code, _ := ts.do(t, http.MethodGet, "/api/v1/stories?"+q, nil); code != http.StatusBadRequest {
			t.Fatalf("%s status=%d want=400", q, code)
		}
	}
}

func TestEpisodes(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createStory(t, storyBody("A"))

	body := map[string]interface{}{"title": "Two", "audio_url": "https://cdn/2.mp3", "episode_number": 2}
	if code, _ := ts.do(t, http.MethodPost, "/api/v1/stories/missing/episodes", body); code != http.StatusNotFound {
		t.Fatalf("episode for missing story status=%d want=404", code)
	}
	two := ts.createEpisode(t, s.ID, body)
	if two.StoryID != s.ID {
		t.Fatalf("story_id=%s want=%s", two.StoryID, s.ID)
	}
	ts.createEpisode(t, s.ID, map[string]interface{}{"title": "Loose", "audio_url": "https://cdn/x.mp3"})
	ts.createEpisode(t, s.ID, map[string]interface{}{"title": "One", "audio_url": "https://cdn/1.mp3", "episode_number": "1"})

	code, env := ts.do(t, http.MethodGet, "/api/v1/stories/"+s.ID, nil)
	if code != http.StatusOK {
		t.Fatalf("get story status=%d", code)
	}
	var full StoryResponse
	decode(t, env.Data, &full)
	var titles []string
	for _, ep := range full.Episodes {
		titles = append(titles, ep.Title)
	}
	if strings.Join(titles, ",") != "One,Two,Loose" {
		t.Fatalf("episodes=%v want One,Two,Loose", titles)
	}

	code, env = ts.do(t, http.MethodPost, "/api/v1/stories/"+s.ID+"/episodes", map[string]interface{}{"title": ""})
	if code != http.StatusUnprocessableEntity || !env.Errors.Has("audio_url", validators.MissingRequiredField) {
		t.Fatalf("status=%d errors=%v", code, env.Errors)
	}

	update := map[string]interface{}{"title": "Two!", "audio_url": "https://cdn/2.mp3", "story_id": "elsewhere"}
	code, env = ts.do(t, http.MethodPut, "/api/v1/episodes/"+two.ID, update)
	if code != http.StatusOK {
		t.Fatalf("update status=%d env=%+v", code, env)
	}
	var got models.Episode
	decode(t, env.Data, &got)
	if got.Title != "Two!" || got.StoryID != s.ID || got.EpisodeNumber != nil {
		t.Fatalf("updated=%+v", got)
	}

	if code, _ := ts.do(t, http.MethodPatch, "/api/v1/episodes/"+two.ID+"/publish", map[string]bool{"is_published": true}); code != http.StatusOK {
		t.Fatalf("publish status=%d", code)
	}
	_, env = ts.do(t, http.MethodGet, "/api/v1/stories/"+s.ID+"/episodes?published=true", nil)
	var published []models.Episode
	decode(t, env.Data, &published)
	if len(published) != 1 || published[0].ID != two.ID {
		t.Fatalf("published=%+v", published)
	}

	if code, _ := ts.do(t, http.MethodDelete, "/api/v1/episodes/"+two.ID, nil); code != http.StatusOK {
		t.Fatalf("delete status=%d", code)
	}
	if code, _ := ts.do(t, http.MethodGet, "/api/v1/episodes/"+two.ID, nil); code != http.StatusNotFound {
		t.Fatalf("get deleted status=%d want=404", code)
	}
}

func TestSlideEndpoints(t *testing.T) {
	ts := newTestServer(t)
	s := ts.createStory(t, storyBody("A"))
	ep := ts.createEpisode(t, s.ID, map[string]interface{}{"title": "E", "audio_url": "https://cdn/e.mp3"})
	base := "/api/v1/episodes/" + ep.ID + "/slides"

	slidesOf := func(env envelope) []models.Slide {
		var got models.Episode
		decode(t, env.Data, &got)
		return got.Slides
	}

	code, env := ts.do(t, http.MethodPost, base, map[string]interface{}{"image_url": "https://cdn/1.png"})
	if code != http.StatusOK || len(slidesOf(env)) != 1 {
		t.Fatalf("append status=%d env=%+v", code, env)
	}
	code, env = ts.do(t, http.MethodPost, base, map[string]interface{}{"image_url": "https://cdn/2.png", "start_time": 8})
	if got := slidesOf(env); code != http.StatusOK || len(got) != 2 || got[1].StartTime != 8 {
		t.Fatalf("append status=%d slides=%v", code, got)
	}

	code, env = ts.do(t, http.MethodPost, base, nil)
	if code != http.StatusUnprocessableEntity || !env.Errors.Has("slides[2].image_url", validators.MissingRequiredField) {
		t.Fatalf("blank append status=%d errors=%v", code, env.Errors)
	}
	if stored, _ := ts.episodes.GetByID(context.Background(), ep.ID); len(stored.Slides) != 2 {
		t.Fatalf("rejected edit was persisted: %v", stored.Slides)
	}

	code, env = ts.do(t, http.MethodPatch, base+"/0", map[string]interface{}{"start_time": 2.5})
	if got := slidesOf(env); code != http.StatusOK || got[0].StartTime != 2.5 || got[0].ImageURL != "https://cdn/1.png" {
		t.Fatalf("patch status=%d slides=%v", code, got)
	}
	if code, _ := ts.do(t, http.MethodPatch, base+"/0", map[string]interface{}{"start_time": -1}); code != http.StatusUnprocessableEntity {
		t.Fatalf("negative start_time status=%d want=422", code)
	}
	for _, idx := range []string{"5", "-1"} {
		if code, _ := ts.do(t, http.MethodPatch, base+"/"+idx, map[string]interface{}{"start_time": 1}); code != http.StatusBadRequest {
			t.Fatalf("patch index %s status=%d want=400", idx, code)
		}
	}
	if code, _ := ts.do(t, http.MethodDelete, base+"/x", nil); code != http.StatusBadRequest {
		t.Fatalf("non-numeric index status=%d want=400", code)
	}

	code, env = ts.do(t, http.MethodDelete, base+"/0", nil)
	if got := slidesOf(env); code != http.StatusOK || len(got) != 1 || got[0].ImageURL != "https://cdn/2.png" {
		t.Fatalf("remove status=%d slides=%v", code, got)
	}
	code, env = ts.do(t, http.MethodDelete, base+"/0", nil)
	if got := slidesOf(env); code != http.StatusOK || got != nil {
		t.Fatalf("remove last status=%d slides=%v want null", code, got)
	}
}

func multipartUpload(t *testing.T, path, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	part.Write(data)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploads(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.serve(t, multipartUpload(t, "/api/v1/uploads/tile-image", "t.png", "image/png", []byte("png-bytes")))
	if code != http.StatusCreated {
		t.Fatalf("upload status=%d env=%+v", code, env)
	}
	var out struct {
		URL string `json:"url"`
	}
	decode(t, env.Data, &out)
	if !strings.HasPrefix(out.URL, "https://cdn.example.com/media/stories/tiles/") || !strings.HasSuffix(out.URL, ".png") {
		t.Fatalf("url=%s", out.URL)
	}

	if code, _ := ts.serve(t, multipartUpload(t, "/api/v1/uploads/audio", "t.png", "image/png", []byte("x"))); code != http.StatusBadRequest {
		t.Fatalf("image as audio status=%d want=400", code)
	}
	if code, _ := ts.serve(t, multipartUpload(t, "/api/v1/uploads/avatar", "t.png", "image/png", []byte("x"))); code != http.StatusBadRequest {
		t.Fatalf("unknown role status=%d want=400", code)
	}
	if code, _ := ts.do(t, http.MethodPost, "/api/v1/uploads/cover-image", map[string]string{}); code != http.StatusBadRequest {
		t.Fatalf("missing file status=%d want=400", code)
	}

	if code, _ := ts.do(t, http.MethodDelete, "/api/v1/uploads?url="+out.URL, nil); code != http.StatusOK {
		t.Fatalf("delete status=%d", code)
	}
	if len(ts.objects.Paths()) != 0 {
		t.Fatalf("object left behind: %v", ts.objects.Paths())
	}
	if code, _ := ts.do(t, http.MethodDelete, "/api/v1/uploads?url="+out.URL, nil); code != http.StatusNotFound {
		t.Fatalf("second delete status=%d want=404", code)
	}
	if code, _ := ts.do(t, http.MethodDelete, "/api/v1/uploads?url=https://elsewhere.com/x.png", nil); code != http.StatusBadRequest {
		t.Fatalf("foreign url status=%d want=400", code)
	}
	if code, _ := ts.do(t, http.MethodDelete, "/api/v1/uploads", nil); code != http.StatusBadRequest {
		t.Fatalf("missing url status=%d want=400", code)
	}
}

func TestHomepage(t *testing.T) {
	ts := newTestServer(t)
	publish := func(s models.Story) {
		ts.do(t, http.MethodPatch, "/api/v1/stories/"+s.ID+"/publish", map[string]bool{"is_published": true})
	}

	banner := storyBody("banner")
	banner["is_banner"] = true
	banner["homepage_rank"] = 2
	b := ts.createStory(t, banner)
	publish(b)

	launch := storyBody("launch")
	launch["is_new_launch"] = true
	launch["new_launch_rank"] = 1
	launch["rank"] = 5
	l := ts.createStory(t, launch)
	publish(l)

	draft := storyBody("draft")
	draft["is_banner"] = true
	draft["rank"] = 1
	ts.createStory(t, draft)

	code, env := ts.do(t, http.MethodGet, "/api/v1/homepage", nil)
	if code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	var page Homepage
	decode(t, env.Data, &page)
	if len(page.Banners) != 1 || page.Banners[0].ID != b.ID {
		t.Fatalf("banners=%+v", page.Banners)
	}
	if len(page.NewLaunches) != 1 || page.NewLaunches[0].ID != l.ID {
		t.Fatalf("new_launches=%+v", page.NewLaunches)
	}
	if len(page.Ranked) != 1 || page.Ranked[0].ID != l.ID {
		t.Fatalf("ranked=%+v", page.Ranked)
	}
}

func TestErrorHandlerHidesInternals(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zap.NewNop())
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("dial tcp 10.0.0.3:5432: connection refused")
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want=500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{repositories.ErrNotFound, http.StatusNotFound},
		{uploads.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{uploads.ErrInvalidFileType, http.StatusBadRequest},
		{repositories.ErrImmutableField, http.StatusBadRequest},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(tt.err); got != tt.want {
			t.Fatalf("statusOf(%v)=%d want=%d", tt.err, got, tt.want)
		}
	}
}
