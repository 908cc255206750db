package server

import (
	"errors"
	"strings"
	"testing"
)

func TestTransform(t *testing.T) {
	t.Run("TypeScript", func(t *testing.T) {
		code, err := Transform([]byte("enum Color { Red }\nexport const c: Color = Color.Red;"), "color.ts", TransformOptions{Target: "es2020"})
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(code), ": Color") || !strings.Contains(string(code), "export") {
			t.Fatalf("unexpected output: %s", code)
		}
	})

	t.Run("JSXAutomatic", func(t *testing.T) {
		code, err := Transform([]byte("export const App = () => <div>hi</div>;"), "/src/app.jsx", TransformOptions{Target: "es2020", JSXImportSource: "preact"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(code), `"preact/jsx-dev-runtime"`) {
			t.Fatalf("expected the jsx dev runtime import: %s", code)
		}
	})

	t.Run("JSXClassic", func(t *testing.T) {
		code, err := Transform([]byte("export const App = () => <div>hi</div>;"), "app.tsx", TransformOptions{Target: "es2020", JSX: "classic"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(code), "React.createElement") {
			t.Fatalf("expected React.createElement calls: %s", code)
		}
	})

	t.Run("SyntaxError", func(t *testing.T) {
		_, err := Transform([]byte("export const = 1;"), "bad.ts", TransformOptions{})
		var transformErr *TransformError
		if !errors.As(err, &transformErr) {
			t.Fatalf("expected a TransformError, got %v", err)
		}
		if transformErr.Filename != "bad.ts" || len(transformErr.Messages) == 0 {
			t.Fatalf("unexpected error: %v", transformErr)
		}
	})
}
