package segment

import "testing"

func TestDiff_Basic(t *testing.T) {
	oldValues := []Value{
		StringFromPlaintext("title", "Hello"),
		StringFromPlaintext("intro", "World"),
		StringFromPlaintext("footer", "Goodbye"),
	}
	newValues := []Value{
		StringFromPlaintext("title", "Hello"),
		StringFromPlaintext("intro", "Everyone"),
		StringFromPlaintext("cta", "Sign up"),
	}

	diff := Diff(oldValues, newValues)
	stats := diff.Stats()

	if stats.Unchanged != 1 {
		t.Errorf("Expected 1 unchanged, got %d", stats.Unchanged)
	}
	if stats.Modified != 1 {
		t.Errorf("Expected 1 modified, got %d", stats.Modified)
	}
	if stats.Added != 1 || diff.Added[0].Path() != "cta" {
		t.Errorf("Expected cta added, got %v", diff.Added)
	}
	if stats.Removed != 1 || diff.Removed[0].Path() != "footer" {
		t.Errorf("Expected footer removed, got %v", diff.Removed)
	}
	if !diff.HasChanges() {
		t.Error("HasChanges should be true")
	}
}

func TestDiff_NoChanges(t *testing.T) {
	values := []Value{
		StringFromPlaintext("title", "Hello"),
		NewTemplate("body", "html", "<p><text position=\"0\"></text></p>", 1),
	}

	diff := Diff(values, values)

	if diff.HasChanges() {
		t.Error("Expected no changes")
	}
	if len(diff.Unchanged) != 2 {
		t.Errorf("Expected 2 unchanged, got %d", len(diff.Unchanged))
	}
}

func TestDiff_AttributeOnlyChangeIsUnchanged(t *testing.T) {
	oldValue, _ := StringFromHTML("body.1", `See <a href="/old">docs</a>`)
	newValue, _ := StringFromHTML("body.1", `See <a href="/new">docs</a>`)

	diff := Diff([]Value{oldValue}, []Value{newValue})

	if diff.HasChanges() {
		t.Errorf("href changes should not invalidate translations: %+v", diff.Stats())
	}
}

func TestDiff_NeedsTranslation(t *testing.T) {
	oldValues := []Value{
		StringFromPlaintext("title", "Hello"),
		NewRelatedObject("author", "blog.Author", "a"),
	}
	newValues := []Value{
		StringFromPlaintext("title", "Hi"),
		NewRelatedObject("author", "blog.Author", "b"),
		StringFromPlaintext("summary", "New"),
	}

	needs := Diff(oldValues, newValues).NeedsTranslation()

	if len(needs) != 2 {
		t.Fatalf("Expected 2 strings needing translation, got %d", len(needs))
	}
	if needs[0].Path() != "summary" || needs[1].Path() != "title" {
		t.Errorf("unexpected order: %s, %s", needs[0].Path(), needs[1].Path())
	}
}

func TestDiff_RichTextSharesPath(t *testing.T) {
	tmpl := NewTemplate("intro", "html", `<p><text position="0"></text></p><p><text position="1"></text></p>`, 2)
	oldValues := []Value{
		tmpl,
		StringFromPlaintext("intro", "One"),
		StringFromPlaintext("intro", "Two"),
	}
	newValues := []Value{
		tmpl,
		StringFromPlaintext("intro", "One"),
		StringFromPlaintext("intro", "Deux"),
	}

	diff := Diff(oldValues, newValues)
	stats := diff.Stats()

	if stats.Unchanged != 2 || stats.Modified != 1 || stats.Added != 0 || stats.Removed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := diff.Modified[0].New.(StringValue).RenderText(); got != "Deux" {
		t.Errorf("modified = %q, want Deux", got)
	}
}

func TestDiff_ManyStringsUnderOnePath(t *testing.T) {
	values := []Value{
		NewTemplate("body", "html", `<p><text position="0"></text></p><p><text position="1"></text></p><p><text position="2"></text></p>`, 3),
		StringFromPlaintext("body", "One"),
		StringFromPlaintext("body", "Two"),
		StringFromPlaintext("body", "Three"),
		StringFromPlaintext("body", "Four"),
	}

	stats := Diff(values, values).Stats()
	if stats.Unchanged != 5 || stats.Modified != 0 || stats.Added != 0 || stats.Removed != 0 {
		t.Fatalf("diff of a revision with itself: %+v", stats)
	}

	changed := append([]Value(nil), values...)
	changed[3] = StringFromPlaintext("body", "Trois")
	diff := Diff(values, changed)
	if len(diff.Modified) != 1 {
		t.Fatalf("modified = %d, want 1", len(diff.Modified))
	}
	if got := diff.Modified[0].Old.(StringValue).RenderText(); got != "Three" {
		t.Errorf("modified old = %q, want Three", got)
	}
}
