package actions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/LocalAutomator/internal/domain"
	"github.com/shaiso/LocalAutomator/internal/engine"
)

func runAction(t *testing.T, typ string, params map[string]any, vars *engine.Context) (*domain.StepResult, error) {
	t.Helper()
	action, err := DefaultDispatcher().Resolve(typ)
	require.NoError(t, err)
	if vars == nil {
		vars = engine.NewContext()
	}
	return action.Execute(context.Background(), NewRequest("test", params, vars))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCreateAndDeleteFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	res, err := runAction(t, TypeCreateFolder, map[string]any{"path": dir}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StepStatusSuccess, res.Status)
	assert.DirExists(t, dir)

	// Повторное создание с exist_ok=true допустимо
	_, err = runAction(t, TypeCreateFolder, map[string]any{"path": dir}, nil)
	assert.NoError(t, err)

	_, err = runAction(t, TypeCreateFolder, map[string]any{"path": dir, "exist_ok": false}, nil)
	assert.Error(t, err)

	writeFile(t, filepath.Join(dir, "x.txt"), "x")
	_, err = runAction(t, TypeDeleteFolder, map[string]any{"path": dir}, nil)
	require.NoError(t, err)
	assert.NoDirExists(t, dir)

	_, err = runAction(t, TypeDeleteFolder, map[string]any{"path": dir}, nil)
	assert.Error(t, err)

	_, err = runAction(t, TypeDeleteFolder, map[string]any{"path": dir, "ignore_errors": true}, nil)
	assert.NoError(t, err)
}

func TestCreateFolder_MissingPath(t *testing.T) {
	_, err := runAction(t, TypeCreateFolder, map[string]any{"path": "  "}, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestCopyMoveRenameDelete(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	writeFile(t, src, "payload")

	// Копирование в папку сохраняет имя файла
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o755))
	res, err := runAction(t, TypeCopy, map[string]any{"src": src, "dst": outDir}, nil)
	require.NoError(t, err)
	copied := filepath.Join(outDir, "src.txt")
	assert.Equal(t, copied, res.Data["path"])
	data, err := os.ReadFile(copied)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.FileExists(t, src)

	// Перемещение
	moved := filepath.Join(dir, "moved.txt")
	_, err = runAction(t, TypeMove, map[string]any{"src": copied, "dst": moved}, nil)
	require.NoError(t, err)
	assert.NoFileExists(t, copied)
	assert.FileExists(t, moved)

	// Переименование
	renamed := filepath.Join(dir, "renamed.txt")
	_, err = runAction(t, TypeRename, map[string]any{"src": moved, "dst": renamed}, nil)
	require.NoError(t, err)
	assert.FileExists(t, renamed)

	// Удаление
	_, err = runAction(t, TypeDelete, map[string]any{"path": renamed}, nil)
	require.NoError(t, err)
	assert.NoFileExists(t, renamed)

	_, err = runAction(t, TypeDelete, map[string]any{"path": renamed}, nil)
	assert.Error(t, err)

	res, err = runAction(t, TypeDelete, map[string]any{"path": renamed, "missing_ok": true}, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StepStatusSuccess, res.Status)
}

func TestCopy_SameFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "data.txt")
	writeFile(t, src, "precious data")

	tests := []struct {
		name string
		dst  string
	}{
		{"same path", src},
		{"own folder", dir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runAction(t, TypeCopy, map[string]any{"src": src, "dst": tt.dst}, nil)
			assert.ErrorIs(t, err, ErrSameFile)

			data, err := os.ReadFile(src)
			require.NoError(t, err)
			assert.Equal(t, "precious data", string(data))
		})
	}
}

func TestCopy_MissingParams(t *testing.T) {
	_, err := runAction(t, TypeCopy, map[string]any{"src": "a"}, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "1")
	writeFile(t, filepath.Join(dir, "b.csv"), "2")
	writeFile(t, filepath.Join(dir, "c.txt"), "3")
	writeFile(t, filepath.Join(dir, "sub", "d.csv"), "4")

	vars := engine.NewContext()
	res, err := runAction(t, TypeList, map[string]any{
		"folder":   dir,
		"pattern":  "*.csv",
		"var_name": "csvs",
	}, vars)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Data["count"])

	count, err := vars.Get("csvs_count")
	require.NoError(t, err)
	assert.Equal(t, "2", count)

	list, err := vars.Get("csvs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.csv")+"\n"+filepath.Join(dir, "b.csv"), list)

	// Рекурсивный поиск
	res, err = runAction(t, TypeList, map[string]any{
		"folder":    dir,
		"pattern":   "*.csv",
		"recursive": true,
	}, vars)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Data["count"])

	count, _ = vars.Get("file_list_count")
	assert.Equal(t, "3", count)
}

func TestReadWriteAppendText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "notes.txt")
	vars := engine.NewContext()

	_, err := runAction(t, TypeWriteText, map[string]any{"path": path, "content": "первая строка"}, vars)
	require.NoError(t, err)

	_, err = runAction(t, TypeAppendText, map[string]any{"path": path, "content": "second"}, vars)
	require.NoError(t, err)

	_, err = runAction(t, TypeAppendText, map[string]any{"path": path, "content": "-tail", "newline": false}, vars)
	require.NoError(t, err)

	res, err := runAction(t, TypeReadText, map[string]any{"path": path, "var_name": "text"}, vars)
	require.NoError(t, err)
	assert.Equal(t, "первая строка\nsecond-tail", res.Data["content"])

	text, err := vars.Get("text")
	require.NoError(t, err)
	assert.Equal(t, "первая строка\nsecond-tail", text)
}

func TestWriteText_ShiftJIS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sjis.txt")

	_, err := runAction(t, TypeWriteText, map[string]any{
		"path":     path,
		"content":  "日本語",
		"encoding": "shift_jis",
	}, nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "日本語", string(raw), "file should not be UTF-8")
	assert.Len(t, raw, 6)

	res, err := runAction(t, TypeReadText, map[string]any{"path": path, "encoding": "cp932"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "日本語", res.Data["content"])
}

func TestReadText_UnknownEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, "x")

	_, err := runAction(t, TypeReadText, map[string]any{"path": path, "encoding": "klingon"}, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
