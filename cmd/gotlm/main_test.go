package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZaguanLabs/gotlm/content/contenttest"
	"github.com/ZaguanLabs/gotlm/pofile"
	"github.com/ZaguanLabs/gotlm/segment"
)

const promoJSON = `{"content_type": "blog.Promo", "translation_key": "promo-1", "locale": "en", "fields": {"text": "Big sale"}}`

// setup points the configuration at a fresh database and the sample
// schema, and returns the temp directory.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	schema := filepath.Join(dir, "schema.yaml")
	writeFile(t, schema, contenttest.SchemaYAML)

	t.Setenv("GOTLM_DB_PATH", filepath.Join(dir, "gotlm.db"))
	t.Setenv("GOTLM_SCHEMA_PATH", schema)
	t.Setenv("GOTLM_SOURCE_LOCALE", "en")
	t.Setenv("GOTLM_LOCALES", "en,fr")
	t.Setenv("GOTLM_MT_PROVIDER", "mock")
	t.Setenv("GOTLM_REDIS_URL", "")
	t.Setenv("GOTLM_LOG_LEVEL", "error")
	return dir
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	// Keep a stray .env in the working directory out of the tests.
	args = append([]string{"--env", filepath.Join(t.TempDir(), "missing.env")}, args...)
	if err := run(args, &stdout, &stderr); err != nil {
		t.Fatalf("gotlm %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.String()
}

// submit submits the object in file and returns the French translation id.
func submit(t *testing.T, file string, extra ...string) string {
	t.Helper()
	out := runOK(t, append([]string{"submit", "--json", file}, extra...)...)

	var subs []struct {
		ContentType  string `json:"content_type"`
		Translations []struct {
			ID     string `json:"id"`
			Locale string `json:"locale"`
		} `json:"translations"`
	}
	if err := json.Unmarshal([]byte(out), &subs); err != nil {
		t.Fatalf("parsing submit output: %v\n%s", err, out)
	}
	last := subs[len(subs)-1]
	if len(last.Translations) != 1 || last.Translations[0].Locale != "fr" {
		t.Fatalf("unexpected translations: %+v", last.Translations)
	}
	return last.Translations[0].ID
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"version"}, &stdout, &stderr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "gotlm") {
		t.Errorf("expected version output, got: %s", stdout.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run([]string{"frobnicate"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for unknown command")
	}
}

func TestRun_MissingSchema(t *testing.T) {
	dir := setup(t)
	t.Setenv("GOTLM_SCHEMA_PATH", filepath.Join(dir, "nope.yaml"))
	page := filepath.Join(dir, "page.json")
	writeFile(t, page, contenttest.PageJSON)

	var stdout, stderr bytes.Buffer
	err := run([]string{"extract", page}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "loading schema") {
		t.Fatalf("expected schema error, got: %v", err)
	}
}

func TestRun_Extract(t *testing.T) {
	dir := setup(t)
	page := filepath.Join(dir, "page.json")
	writeFile(t, page, contenttest.PageJSON)

	out := runOK(t, "extract", page)
	if !strings.Contains(out, "blog.BlogPage page-1 (en)") {
		t.Errorf("missing header: %s", out)
	}
	for _, want := range []string{"title", `"Hello world"`, "html template", "blog.Author author-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestRun_ExtractJSON(t *testing.T) {
	dir := setup(t)
	page := filepath.Join(dir, "page.json")
	writeFile(t, page, contenttest.PageJSON)

	out := runOK(t, "extract", "--json", page)

	var records []segment.Record
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected segments")
	}
	if records[0].Path != "title" || records[0].Source != "Hello world" {
		t.Errorf("first record = %+v", records[0])
	}
}

func TestRun_Diff(t *testing.T) {
	dir := setup(t)
	oldPath := filepath.Join(dir, "old.json")
	newPath := filepath.Join(dir, "new.json")
	writeFile(t, oldPath, contenttest.PageJSON)
	writeFile(t, newPath, strings.Replace(contenttest.PageJSON, `"title": "Hello world"`, `"title": "Hello there"`, 1))

	out := runOK(t, "diff", oldPath, newPath)
	if !strings.Contains(out, "Modified:  1") {
		t.Errorf("expected one modified segment:\n%s", out)
	}
	if !strings.Contains(out, "Needs translation: 1 strings") {
		t.Errorf("expected one string to translate:\n%s", out)
	}

	out = runOK(t, "diff", oldPath, oldPath)
	if !strings.Contains(out, "No changes detected") {
		t.Errorf("expected no changes:\n%s", out)
	}
}

func TestRun_TranslateAndPublish(t *testing.T) {
	dir := setup(t)
	promo := filepath.Join(dir, "promo.json")
	writeFile(t, promo, promoJSON)

	id := submit(t, promo)

	out := runOK(t, "translate", id)
	if !strings.Contains(out, "Translated: 1") {
		t.Errorf("unexpected translate output:\n%s", out)
	}

	out = runOK(t, "status", "--json", id)
	var status struct {
		Complete bool `json:"complete"`
	}
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatal(err)
	}
	if !status.Complete {
		t.Errorf("translation should be complete:\n%s", out)
	}

	published := filepath.Join(dir, "promo.fr.json")
	runOK(t, "publish", "-o", published, id)

	data, err := os.ReadFile(published)
	if err != nil {
		t.Fatal(err)
	}
	var obj struct {
		Locale string            `json:"locale"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatal(err)
	}
	if obj.Locale != "fr" || obj.Fields["text"] != "[fr] Big sale" {
		t.Errorf("published = %+v", obj)
	}
}

func TestRun_SubmitWithRelated(t *testing.T) {
	dir := setup(t)
	page := filepath.Join(dir, "page.json")
	promo := filepath.Join(dir, "promo.json")
	writeFile(t, page, contenttest.PageJSON)
	writeFile(t, promo, promoJSON)

	out := runOK(t, "submit", "--related", promo, page)
	if !strings.Contains(out, "blog.Promo promo-1") || !strings.Contains(out, "blog.BlogPage page-1") {
		t.Errorf("expected both objects submitted:\n%s", out)
	}
	if strings.Index(out, "blog.Promo") > strings.Index(out, "blog.BlogPage") {
		t.Errorf("related object should be submitted first:\n%s", out)
	}
}

func TestRun_POExportImport(t *testing.T) {
	dir := setup(t)
	page := filepath.Join(dir, "page.json")
	writeFile(t, page, contenttest.PageJSON)
	id := submit(t, page)

	poPath := filepath.Join(dir, "page.po")
	runOK(t, "po", "export", "-o", poPath, id)

	data, err := os.ReadFile(poPath)
	if err != nil {
		t.Fatal(err)
	}
	f, err := pofile.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	for i := range f.Entries {
		if f.Entries[i].Context == "title" {
			f.Entries[i].Str = "Bonjour le monde"
		}
	}
	var buf bytes.Buffer
	if err := pofile.Encode(&buf, f); err != nil {
		t.Fatal(err)
	}
	writeFile(t, poPath, buf.String())

	out := runOK(t, "po", "import", id, poPath)
	if !strings.Contains(out, "Imported: 1") {
		t.Errorf("unexpected import output:\n%s", out)
	}

	out = runOK(t, "status", "--strings", id)
	if !strings.Contains(out, "Translated: 1") {
		t.Errorf("unexpected status:\n%s", out)
	}
}

func TestRun_Edit(t *testing.T) {
	dir := setup(t)
	promo := filepath.Join(dir, "promo.json")
	writeFile(t, promo, promoJSON)
	id := submit(t, promo)

	out := runOK(t, "edit", id, "--path", "text", "--data", "Grande vente")
	if !strings.Contains(out, "Saved translation of text") {
		t.Errorf("unexpected edit output:\n%s", out)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{"edit", id, "--data", "x"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "path") {
		t.Errorf("expected missing --path error, got: %v", err)
	}
}

func TestRun_TranslateUnknownID(t *testing.T) {
	setup(t)
	var stdout, stderr bytes.Buffer
	err := run([]string{"translate", "no-such-translation"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got: %v", err)
	}
}

func TestRun_CacheExportImport(t *testing.T) {
	dir := setup(t)
	path := filepath.Join(dir, "cache.jsonl")

	out := runOK(t, "cache", "export", path)
	if !strings.Contains(out, "Wrote 0 entries") {
		t.Errorf("export output: %s", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"format":"gotlm-cache/2"`) {
		t.Errorf("snapshot header missing: %s", data)
	}

	out = runOK(t, "cache", "import", path)
	if !strings.Contains(out, "Imported 0 entries (0 failed)") {
		t.Errorf("import output: %s", out)
	}
}
