package rewriter

import (
	"strings"
	"testing"
)

func TestRewrite(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			name:   "default import",
			source: `import x from 'left-pad';`,
			want:   `import x from '/@modules/left-pad';`,
		},
		{
			name:   "relative import",
			source: `import y from './local';`,
			want:   `import y from './local';`,
		},
		{
			name:   "absolute and url imports",
			source: "import a from '/src/a.ts'\nimport b from \"https://esm.sh/b\"",
			want:   "import a from '/src/a.ts'\nimport b from \"https://esm.sh/b\"",
		},
		{
			name:   "named imports with sub-path",
			source: `import { createRoot } from "react-dom/client"`,
			want:   `import { createRoot } from "/@modules/react-dom/client"`,
		},
		{
			name:   "scoped package",
			source: `import * as ui from "@scope/ui/button"`,
			want:   `import * as ui from "/@modules/@scope/ui/button"`,
		},
		{
			name:   "multi-line import clause",
			source: "import {\n  useState,\n  useEffect,\n} from 'react'\n",
			want:   "import {\n  useState,\n  useEffect,\n} from '/@modules/react'\n",
		},
		{
			name:   "export from",
			source: "export * from 'lodash'\nexport { default as dayjs } from \"dayjs\"",
			want:   "export * from '/@modules/lodash'\nexport { default as dayjs } from \"/@modules/dayjs\"",
		},
		{
			name:   "side-effect import",
			source: `import "normalize.css"; import './app.css'`,
			want:   `import "/@modules/normalize.css"; import './app.css'`,
		},
		{
			name:   "dynamic import",
			source: `const m = await import("canvas-confetti")`,
			want:   `const m = await import("/@modules/canvas-confetti")`,
		},
		{
			name:   "several statements on one line",
			source: `import a from "a";import b from "./b";import c from "c"`,
			want:   `import a from "/@modules/a";import b from "./b";import c from "/@modules/c"`,
		},
		{
			name:   "not an import statement",
			source: "const s = 'import x from \"react\"'\n// import y from 'vue'",
			want:   "const s = 'import x from \"react\"'\n// import y from 'vue'",
		},
		{
			name:   "indented import",
			source: "  import React from 'react'",
			want:   "  import React from '/@modules/react'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rewrite(tt.source)
			if got != tt.want {
				t.Fatalf("\ngot:  %s\nwant: %s", got, tt.want)
			}
			if again := Rewrite(got); again != got {
				t.Fatalf("rewrite is not idempotent:\n%s\n%s", got, again)
			}
		})
	}
}

func TestRewriteHTML(t *testing.T) {
	doc := `<!DOCTYPE html>
<html>
<head>
  <script type="module">
    import confetti from "canvas-confetti"
    import { app } from "./app.ts"
  </script>
  <script>import x from "not-a-module"</script>
</head>
<body><div id="root"></div></body>
</html>`
	out, err := RewriteHTML([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if !strings.Contains(s, `import confetti from "/@modules/canvas-confetti"`) {
		t.Fatalf("module script was not rewritten:\n%s", s)
	}
	if !strings.Contains(s, `import { app } from "./app.ts"`) {
		t.Fatalf("relative import should be kept:\n%s", s)
	}
	if !strings.Contains(s, `<script>import x from "not-a-module"</script>`) {
		t.Fatalf("classic script should be kept:\n%s", s)
	}
	if !strings.Contains(s, `<div id="root"></div>`) {
		t.Fatalf("markup should be kept:\n%s", s)
	}
}
