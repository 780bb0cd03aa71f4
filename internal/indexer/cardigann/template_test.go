package cardigann

import (
	"testing"
	"time"

	"github.com/slipstream/providercheck/internal/indexer/types"
)

func TestTemplateEngine_Evaluate(t *testing.T) {
	engine := NewTemplateEngine()
	base := NewTemplateContext(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	base.Config["sort"] = "seeders"
	ctx := base.withQuery(types.ModeEpisode, "Game of Thrones S05E08")
	ctx.Result["title"] = "Some.Title"

	tests := []struct {
		name     string
		template string
		want     string
		wantErr  bool
	}{
		{name: "no markers", template: "plain text", want: "plain text"},
		{name: "config", template: "{{ .Config.sort }}", want: "seeders"},
		{name: "missing config key", template: "[{{ .Config.nothing }}]", want: "[]"},
		{name: "keywords", template: "q={{ .Keywords }}", want: "q=Game of Thrones S05E08"},
		{name: "query keywords", template: "{{ .Query.Keywords }}", want: "Game of Thrones S05E08"},
		{name: "mode", template: "{{ .Query.Mode }}", want: "Episode"},
		{name: "result reference", template: "{{ .Result.title }}.torrent", want: "Some.Title.torrent"},
		{name: "today", template: "{{ .Today.Year }}", want: "2024"},
		{name: "re_replace", template: `{{ re_replace .Keywords "\\s+" "." }}`, want: "Game.of.Thrones.S05E08"},
		{name: "default", template: `{{ default .Config.nothing "x" }}`, want: "x"},
		{name: "if", template: `{{ if .Keywords }}search{{ else }}browse{{ end }}`, want: "search"},
		{name: "parse error", template: "{{ .Keywords", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(tt.template, ctx)
			if (err != nil) != tt.wantErr {
				t.Errorf("Evaluate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %q, want %q", got, tt.want)
			}
		})
	}
}
