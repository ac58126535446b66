package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/session"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/visitor"
)

type recordedEvent struct {
	Type, Key string
}

type fakeEvents struct {
	mu  sync.Mutex
	evs []recordedEvent
}

func (f *fakeEvents) Append(ctx context.Context, typ, key string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evs = append(f.evs, recordedEvent{typ, key})
	return nil
}

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.evs {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	store  quiz.Store
	events *fakeEvents
	blobs  string

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	e.now = e.now.Add(d)
	e.mu.Unlock()
}

func newEnv(t *testing.T, seed ...quiz.Question) *testEnv {
	t.Helper()
	e := &testEnv{
		store:  quiz.NewInMemoryStore(seed...),
		events: &fakeEvents{},
		blobs:  t.TempDir(),
		now:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	sessions := session.NewManager(time.Hour).WithClock(func() time.Time {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.now
	})
	bs, err := storage.NewFSStore(e.blobs)
	if err != nil {
		t.Fatal(err)
	}
	d, err := NewDeps(e.store, sessions, bs, e.events, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	h := NewRouter(d, RouterOptions{
		Visitors:    visitor.NewService("test-secret", time.Hour),
		EnableAPI:   true,
		CORSOrigins: []string{"http://localhost:3000"},
	})
	e.srv = httptest.NewServer(h)
	t.Cleanup(e.srv.Close)
	jar, _ := cookiejar.New(nil)
	e.client = &http.Client{Jar: jar}
	return e
}

func threeQuestions() []quiz.Question {
	return []quiz.Question{
		{QuestionText: "2+2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "22", CorrectOption: quiz.B, Explanation: "basic sum"},
		{QuestionText: "Capital of France?", OptionA: "Paris", OptionB: "Rome", OptionC: "Madrid", OptionD: "Berlin", CorrectOption: quiz.A},
		{QuestionText: "Largest planet?", OptionA: "Mars", OptionB: "Venus", OptionC: "Jupiter", OptionD: "Earth", CorrectOption: quiz.C},
	}
}

func (e *testEnv) quizAPI(t *testing.T, in map[string]any) session.View {
	t.Helper()
	var resp *http.Response
	var err error
	if in == nil {
		resp, err = e.client.Get(e.srv.URL + "/api/quiz")
	} else {
		b, _ := json.Marshal(in)
		resp, err = e.client.Post(e.srv.URL+"/api/quiz", "application/json", bytes.NewReader(b))
	}
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var v session.View
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func hasNotice(v session.View, text string) bool {
	for _, n := range v.Notices {
		if n.Text == text {
			return true
		}
	}
	return false
}

func TestQuizAllCorrect(t *testing.T) {
	e := newEnv(t, threeQuestions()...)

	v := e.quizAPI(t, nil)
	if v.Phase != session.PhaseInProgress || v.Index != 0 || v.Total != 3 || !v.CanNext || v.CanPrev {
		t.Fatalf("first view = %+v", v)
	}
	e.quizAPI(t, map[string]any{"answer": "B", "action": "next"})
	e.quizAPI(t, map[string]any{"answer": "A", "action": "next"})
	v = e.quizAPI(t, map[string]any{"answer": "C", "action": "submit"})
	if v.Phase != session.PhaseComplete || v.Score != 3 || len(v.Results) != 3 {
		t.Fatalf("final view = %+v", v)
	}
	for _, r := range v.Results {
		if !r.Correct {
			t.Fatalf("result not correct: %+v", r)
		}
	}

	got := e.events.types()
	if len(got) != 1 || got[0] != syncx.TypeQuizSubmitted {
		t.Fatalf("events = %v", got)
	}

	// completed is terminal: further input does nothing
	v = e.quizAPI(t, map[string]any{"answer": "D", "action": "prev"})
	if v.Phase != session.PhaseComplete || v.Score != 3 || !hasNotice(v, session.MsgCompleted) {
		t.Fatalf("after complete = %+v", v)
	}
	if len(e.events.types()) != 1 {
		t.Fatal("terminal renders must not record another submission")
	}
}

func TestQuizTimeUpScoresUnanswered(t *testing.T) {
	e := newEnv(t, threeQuestions()...)

	e.quizAPI(t, map[string]any{"answer": "B", "action": "next"})
	e.advance(16 * time.Minute)
	v := e.quizAPI(t, map[string]any{"answer": "A", "action": "next"})
	if v.Phase != session.PhaseComplete || !v.TimeUp || v.Score != 1 {
		t.Fatalf("view = %+v", v)
	}
	if v.Results[1].YourAnswer != "No Answer" || v.Results[2].YourAnswer != "No Answer" {
		t.Fatalf("unanswered results = %+v", v.Results)
	}
}

func TestQuizEmptyBank(t *testing.T) {
	e := newEnv(t)
	v := e.quizAPI(t, nil)
	if v.Phase != session.PhaseEmpty || !hasNotice(v, session.MsgNoQuestions) {
		t.Fatalf("view = %+v", v)
	}

	page := body(t, mustGet(t, e.client, e.srv.URL+"/quiz"))
	if !strings.Contains(page, "No questions available") {
		t.Fatalf("page missing notice:\n%s", page)
	}
}

func TestQuizPageFlowAndReset(t *testing.T) {
	e := newEnv(t, threeQuestions()...)

	page := body(t, mustGet(t, e.client, e.srv.URL+"/"))
	if !strings.Contains(page, "Question 1 of 3") || !strings.Contains(page, "Time Remaining") {
		t.Fatalf("first page:\n%s", page)
	}

	page = body(t, mustPostForm(t, e.client, e.srv.URL+"/quiz", url.Values{"answer": {"B"}, "action": {"next"}}))
	if !strings.Contains(page, "Question 2 of 3") {
		t.Fatalf("after next:\n%s", page)
	}
	page = body(t, mustPostForm(t, e.client, e.srv.URL+"/quiz", url.Values{"action": {"prev"}}))
	if !strings.Contains(page, "Question 1 of 3") || !strings.Contains(page, `value="B" checked`) {
		t.Fatalf("saved answer not restored:\n%s", page)
	}

	page = body(t, mustPostForm(t, e.client, e.srv.URL+"/quiz", url.Values{"action": {"save"}}))
	if !strings.Contains(page, session.MsgSaved) {
		t.Fatalf("no saved notice:\n%s", page)
	}

	page = body(t, mustPostForm(t, e.client, e.srv.URL+"/quiz/reset", nil))
	if !strings.Contains(page, "Question 1 of 3") || strings.Contains(page, `checked`) {
		t.Fatalf("reset did not clear answers:\n%s", page)
	}
}

func TestQuizReviewShowsEachQuestion(t *testing.T) {
	e := newEnv(t, threeQuestions()...)
	e.quizAPI(t, map[string]any{"answer": "A"})
	page := body(t, mustGet(t, e.client, e.srv.URL+"/quiz?review=1"))
	if !strings.Contains(page, "Review Your Answers") || strings.Count(page, "<section>") != 3 {
		t.Fatalf("review page:\n%s", page)
	}
	if !strings.Contains(page, "A: 3") || !strings.Contains(page, "B: 4") {
		t.Fatalf("labels missing:\n%s", page)
	}
}

func TestVisitorsDoNotShareState(t *testing.T) {
	e := newEnv(t, threeQuestions()...)
	e.quizAPI(t, map[string]any{"answer": "B", "action": "next"})

	other := newClientFor(e)
	resp := mustGet(t, other, e.srv.URL+"/api/quiz")
	var v session.View
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if v.Index != 0 || v.Selected != "" {
		t.Fatalf("second visitor saw first visitor's state: %+v", v)
	}
}

func TestAdminAddQuestion(t *testing.T) {
	e := newEnv(t)
	form := url.Values{
		"question_text":  {"Q?"},
		"option_a":       {"a"},
		"option_b":       {"b"},
		"option_c":       {"c"},
		"option_d":       {"d"},
		"correct_option": {"D"},
	}
	page := body(t, mustPostForm(t, e.client, e.srv.URL+"/admin/questions", form))
	if !strings.Contains(page, MsgAdded) {
		t.Fatalf("no success notice:\n%s", page)
	}
	if n, _ := e.store.Count(context.Background()); n != 1 {
		t.Fatalf("count = %d", n)
	}
	if got := e.events.types(); len(got) != 1 || got[0] != syncx.TypeQuestionAdded {
		t.Fatalf("events = %v", got)
	}
}

func TestAdminAddQuestionRejectsBlankFields(t *testing.T) {
	e := newEnv(t)
	form := url.Values{
		"question_text":  {"Q?"},
		"option_a":       {"a"},
		"option_b":       {"b"},
		"option_c":       {""},
		"option_d":       {"d"},
		"correct_option": {"A"},
	}
	resp := mustPostForm(t, e.client, e.srv.URL+"/admin/questions", form)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	page := body(t, resp)
	if !strings.Contains(page, MsgFillAllFields) || !strings.Contains(page, `value="a"`) {
		t.Fatalf("page:\n%s", page)
	}
	if n, _ := e.store.Count(context.Background()); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}

func TestAdminAddQuestionBadLetter(t *testing.T) {
	e := newEnv(t)
	form := url.Values{
		"question_text":  {"Q?"},
		"option_a":       {"a"},
		"option_b":       {"b"},
		"option_c":       {"c"},
		"option_d":       {"d"},
		"correct_option": {"E"},
	}
	page := body(t, mustPostForm(t, e.client, e.srv.URL+"/admin/questions", form))
	if !strings.Contains(page, MsgAddFailed) {
		t.Fatalf("page:\n%s", page)
	}
	if n, _ := e.store.Count(context.Background()); n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}

const fiveRecords = `[
 {"question_text":"q1","option_a":"a","option_b":"b","option_c":"c","option_d":"d","correct_option":"A","explanation":""},
 {"question_text":"q2","option_a":"a","option_b":"b","option_c":"c","option_d":"d","correct_option":"B","explanation":"x"},
 {"question_text":"q3","option_a":"a","option_b":"b","option_c":"c","option_d":"d","correct_option":"C"},
 {"question_text":"q4","option_a":"a","option_b":"b","option_c":"c","option_d":"d","correct_option":"D","explanation":null},
 {"question_text":"q5","option_a":"a","option_b":"b","option_c":"c","option_d":"d","correct_option":"A","explanation":"y"}
]`

func TestAdminBulkUploadPartial(t *testing.T) {
	e := newEnv(t)
	resp := uploadFile(t, e.client, e.srv.URL+"/admin/questions/bulk", "questions.json", []byte(fiveRecords))
	page := body(t, resp)
	if !strings.Contains(page, "Successfully added 4 of 5 questions.") {
		t.Fatalf("page:\n%s", page)
	}
	if n, _ := e.store.Count(context.Background()); n != 4 {
		t.Fatalf("count = %d, want 4", n)
	}

	var archived []string
	_ = filepath.Walk(e.blobs, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			archived = append(archived, p)
		}
		return nil
	})
	if len(archived) != 1 || !strings.HasSuffix(archived[0], "-questions.json") {
		t.Fatalf("archived = %v", archived)
	}
}

func TestAdminBulkUploadInvalidFormat(t *testing.T) {
	e := newEnv(t)
	resp := uploadFile(t, e.client, e.srv.URL+"/admin/questions/bulk", "questions.json", []byte(`{"question_text":"q"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if page := body(t, resp); !strings.Contains(page, MsgInvalidFormat) {
		t.Fatalf("page:\n%s", page)
	}
	if n, _ := e.store.Count(context.Background()); n != 0 {
		t.Fatalf("count = %d", n)
	}
}

func TestAdminPageModes(t *testing.T) {
	e := newEnv(t, threeQuestions()...)
	page := body(t, mustGet(t, e.client, e.srv.URL+"/admin?method=bulk"))
	if !strings.Contains(page, `name="file"`) {
		t.Fatalf("bulk page:\n%s", page)
	}
	page = body(t, mustGet(t, e.client, e.srv.URL+"/admin"))
	if !strings.Contains(page, `name="question_text"`) {
		t.Fatalf("single page:\n%s", page)
	}
}

func TestExportThenReimport(t *testing.T) {
	e := newEnv(t, threeQuestions()...)
	resp := mustGet(t, e.client, e.srv.URL+"/admin/questions/export")
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "questions.json") {
		t.Fatalf("content-disposition = %q", cd)
	}
	exported := body(t, resp)

	other := newEnv(t)
	page := body(t, uploadFile(t, other.client, other.srv.URL+"/admin/questions/bulk", "questions.json", []byte(exported)))
	if !strings.Contains(page, "Successfully added 3 of 3 questions.") {
		t.Fatalf("page:\n%s", page)
	}
	a, _ := e.store.FetchAll(context.Background())
	b, _ := other.store.FetchAll(context.Background())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestAPICreateQuestion(t *testing.T) {
	e := newEnv(t)
	cases := []struct {
		body string
		want int
	}{
		{`{"question_text":"q","option_a":"a","option_b":"b","option_c":"c","option_d":"d","correct_option":"B"}`, http.StatusCreated},
		{`{"question_text":"q","option_a":"a","option_b":"","option_c":"c","option_d":"d","correct_option":"B"}`, http.StatusBadRequest},
		{`{"question_text":"q","option_a":"a","option_b":"b","option_c":"c","option_d":"d","correct_option":"Z"}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
	}
	for _, c := range cases {
		resp, err := e.client.Post(e.srv.URL+"/api/questions", "application/json", strings.NewReader(c.body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != c.want {
			t.Fatalf("%s: status = %d, want %d", c.body, resp.StatusCode, c.want)
		}
	}

	resp := mustGet(t, e.client, e.srv.URL+"/api/questions")
	var qs []quiz.Question
	if err := json.NewDecoder(resp.Body).Decode(&qs); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(qs) != 1 || qs[0].ID != 1 || qs[0].CorrectOption != quiz.B {
		t.Fatalf("questions = %+v", qs)
	}
}

func TestAPIBulkImportRawBody(t *testing.T) {
	e := newEnv(t)
	resp, err := e.client.Post(e.srv.URL+"/api/questions/bulk", "application/json", strings.NewReader(fiveRecords))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out struct {
		Total     int    `json:"total"`
		Attempted int    `json:"attempted"`
		Added     int    `json:"added"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Total != 5 || out.Attempted != 4 || out.Added != 4 || out.Message != "Successfully added 4 of 5 questions." {
		t.Fatalf("report = %+v", out)
	}
}

func TestHealthAndReady(t *testing.T) {
	d, err := NewDeps(quiz.NewInMemoryStore(), session.NewManager(time.Hour), nil, nil, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	down := NewRouter(d, RouterOptions{
		Visitors: visitor.NewService("k", time.Hour),
		Ping:     func(context.Context) error { return io.ErrUnexpectedEOF },
	})
	for path, want := range map[string]int{"/healthz": 200, "/readyz": 503, "/api/questions": 404} {
		rec := httptest.NewRecorder()
		down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("%s = %d, want %d", path, rec.Code, want)
		}
	}
}

func newClientFor(e *testEnv) *http.Client {
	jar, _ := cookiejar.New(nil)
	return &http.Client{Jar: jar}
}

func mustGet(t *testing.T, c *http.Client, u string) *http.Response {
	t.Helper()
	resp, err := c.Get(u)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func mustPostForm(t *testing.T, c *http.Client, u string, v url.Values) *http.Response {
	t.Helper()
	resp, err := c.PostForm(u, v)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func uploadFile(t *testing.T, c *http.Client, u, name string, payload []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(payload)
	_ = mw.Close()
	resp, err := c.Post(u, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

// failingStore fails every read, like a database that went away.
type failingStore struct{}

func (failingStore) FetchAll(ctx context.Context) ([]quiz.Question, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Insert(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	return quiz.Question{}, errors.New("connection refused")
}
func (failingStore) Count(ctx context.Context) (int, error) {
	return 0, errors.New("connection refused")
}

func TestQuizFetchFailureLooksLikeEmptyBank(t *testing.T) {
	sessions := session.NewManager(time.Hour)
	d, err := NewDeps(failingStore{}, sessions, nil, nil, logger.Nop())
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(NewRouter(d, RouterOptions{
		Visitors:  visitor.NewService("k", time.Hour),
		EnableAPI: true,
	}))
	defer srv.Close()
	jar, _ := cookiejar.New(nil)
	c := &http.Client{Jar: jar}

	resp := mustGet(t, c, srv.URL+"/quiz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if page := body(t, resp); !strings.Contains(page, "No questions available") {
		t.Fatalf("page missing notice:\n%s", page)
	}

	resp = mustGet(t, c, srv.URL+"/api/quiz")
	var v session.View
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || v.Phase != session.PhaseEmpty || !hasNotice(v, session.MsgNoQuestions) {
		t.Fatalf("status = %d, view = %+v", resp.StatusCode, v)
	}
	if n := sessions.Len(); n != 0 {
		t.Fatalf("sessions = %d, want 0", n)
	}
}

func TestQuizAPIHidesAnswerKeyUntilComplete(t *testing.T) {
	e := newEnv(t, threeQuestions()...)
	resp := mustGet(t, e.client, e.srv.URL+"/api/quiz")
	raw := body(t, resp)
	if !strings.Contains(raw, `"phase":"in_progress"`) || strings.Contains(raw, "correct_option") || strings.Contains(raw, "basic sum") {
		t.Fatalf("in-progress body = %s", raw)
	}
}

func TestQuizPageCountdown(t *testing.T) {
	e := newEnv(t, threeQuestions()...)
	page := body(t, mustGet(t, e.client, e.srv.URL+"/quiz"))
	if !strings.Contains(page, `data-secs="900"`) || !strings.Contains(page, "0:15:00") {
		t.Fatalf("countdown missing:\n%s", page)
	}
}
