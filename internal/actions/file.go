package actions

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// Типы файловых действий.
const (
	TypeCreateFolder = "file.create_folder"
	TypeDeleteFolder = "file.delete_folder"
	TypeCopy         = "file.copy"
	TypeMove         = "file.move"
	TypeDelete       = "file.delete"
	TypeRename       = "file.rename"
	TypeList         = "file.list"
	TypeReadText     = "file.read_text"
	TypeWriteText    = "file.write_text"
	TypeAppendText   = "file.append_text"
)

const categoryFile = "file"

// FileActions возвращает все действия категории file.
func FileActions() []Action {
	return []Action{
		newFuncAction(Spec{
			Type: TypeCreateFolder, Category: categoryFile, DisplayName: "Create folder",
			Description: "Creates a folder including missing parents.",
			Params: []Param{
				{Name: "path", Type: "string", Required: true},
				{Name: "exist_ok", Type: "bool", Default: true, Description: "do not fail if the folder exists"},
			},
		}, createFolder),
		newFuncAction(Spec{
			Type: TypeDeleteFolder, Category: categoryFile, DisplayName: "Delete folder",
			Description: "Deletes a folder with its contents.",
			Params: []Param{
				{Name: "path", Type: "string", Required: true},
				{Name: "ignore_errors", Type: "bool", Default: false},
			},
		}, deleteFolder),
		newFuncAction(Spec{
			Type: TypeCopy, Category: categoryFile, DisplayName: "Copy file",
			Description: "Copies a file to a file path or into a folder.",
			Params: []Param{
				{Name: "src", Type: "string", Required: true},
				{Name: "dst", Type: "string", Required: true},
			},
		}, copyFile),
		newFuncAction(Spec{
			Type: TypeMove, Category: categoryFile, DisplayName: "Move file",
			Description: "Moves a file to a file path or into a folder.",
			Params: []Param{
				{Name: "src", Type: "string", Required: true},
				{Name: "dst", Type: "string", Required: true},
			},
		}, moveFile),
		newFuncAction(Spec{
			Type: TypeDelete, Category: categoryFile, DisplayName: "Delete file",
			Description: "Deletes a file.",
			Params: []Param{
				{Name: "path", Type: "string", Required: true},
				{Name: "missing_ok", Type: "bool", Default: false},
			},
		}, deleteFile),
		newFuncAction(Spec{
			Type: TypeRename, Category: categoryFile, DisplayName: "Rename",
			Description: "Renames a file or folder.",
			Params: []Param{
				{Name: "src", Type: "string", Required: true},
				{Name: "dst", Type: "string", Required: true},
			},
		}, renameFile),
		newFuncAction(Spec{
			Type: TypeList, Category: categoryFile, DisplayName: "List files",
			Description: "Lists files matching a pattern and stores them in a variable.",
			Params: []Param{
				{Name: "folder", Type: "string", Required: true},
				{Name: "pattern", Type: "string", Default: "*"},
				{Name: "var_name", Type: "string", Default: "file_list"},
				{Name: "recursive", Type: "bool", Default: false},
			},
		}, listFiles),
		newFuncAction(Spec{
			Type: TypeReadText, Category: categoryFile, DisplayName: "Read text",
			Description: "Reads a text file into a variable.",
			Params: []Param{
				{Name: "path", Type: "string", Required: true},
				{Name: "var_name", Type: "string", Default: "file_content"},
				{Name: "encoding", Type: "string", Default: "utf-8"},
			},
		}, readText),
		newFuncAction(Spec{
			Type: TypeWriteText, Category: categoryFile, DisplayName: "Write text",
			Description: "Overwrites a text file.",
			Params: []Param{
				{Name: "path", Type: "string", Required: true},
				{Name: "content", Type: "multiline", Required: true},
				{Name: "encoding", Type: "string", Default: "utf-8"},
			},
		}, writeText),
		newFuncAction(Spec{
			Type: TypeAppendText, Category: categoryFile, DisplayName: "Append text",
			Description: "Appends text to a file.",
			Params: []Param{
				{Name: "path", Type: "string", Required: true},
				{Name: "content", Type: "multiline", Required: true},
				{Name: "newline", Type: "bool", Default: true, Description: "insert a newline before non-empty content"},
				{Name: "encoding", Type: "string", Default: "utf-8"},
			},
		}, appendText),
	}
}

func createFolder(_ context.Context, req *Request) (*domain.StepResult, error) {
	path := req.String("path", "")
	if err := requireParam(TypeCreateFolder, "path", path); err != nil {
		return nil, err
	}

	if !req.Bool("exist_ok", true) {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("folder already exists: %s", path)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return domain.Success("folder created: " + path), nil
}

func deleteFolder(_ context.Context, req *Request) (*domain.StepResult, error) {
	path := req.String("path", "")
	if err := requireParam(TypeDeleteFolder, "path", path); err != nil {
		return nil, err
	}

	ignore := req.Bool("ignore_errors", false)
	info, err := os.Stat(path)
	if err != nil {
		if ignore {
			return domain.Success("folder not deleted: " + path), nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a folder: %s", path)
	}
	if err := os.RemoveAll(path); err != nil && !ignore {
		return nil, err
	}
	return domain.Success("folder deleted: " + path), nil
}

func copyFile(_ context.Context, req *Request) (*domain.StepResult, error) {
	src, dst := req.String("src", ""), req.String("dst", "")
	if src == "" || dst == "" {
		return nil, fmt.Errorf("%w: %s: src and dst are required", ErrInvalidParams, TypeCopy)
	}

	target, err := copyFileTo(src, dst)
	if err != nil {
		return nil, err
	}
	return domain.Success(fmt.Sprintf("copied: %s -> %s", src, target)).WithData("path", target), nil
}

func moveFile(_ context.Context, req *Request) (*domain.StepResult, error) {
	src, dst := req.String("src", ""), req.String("dst", "")
	if src == "" || dst == "" {
		return nil, fmt.Errorf("%w: %s: src and dst are required", ErrInvalidParams, TypeMove)
	}

	target := intoFolder(src, dst)
	if err := os.Rename(src, target); err != nil {
		// Rename не работает между томами — копируем и удаляем
		if _, cerr := copyFileTo(src, target); cerr != nil {
			return nil, err
		}
		if rerr := os.Remove(src); rerr != nil {
			return nil, rerr
		}
	}
	return domain.Success(fmt.Sprintf("moved: %s -> %s", src, target)).WithData("path", target), nil
}

func deleteFile(_ context.Context, req *Request) (*domain.StepResult, error) {
	path := req.String("path", "")
	if err := requireParam(TypeDelete, "path", path); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && req.Bool("missing_ok", false) {
			return domain.Success("file does not exist, skipped: " + path), nil
		}
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err := os.Remove(path); err != nil {
		return nil, err
	}
	return domain.Success("deleted: " + path), nil
}

func renameFile(_ context.Context, req *Request) (*domain.StepResult, error) {
	src, dst := req.String("src", ""), req.String("dst", "")
	if src == "" || dst == "" {
		return nil, fmt.Errorf("%w: %s: src and dst are required", ErrInvalidParams, TypeRename)
	}

	if err := os.Rename(src, dst); err != nil {
		return nil, err
	}
	return domain.Success(fmt.Sprintf("renamed: %s -> %s", src, dst)), nil
}

func listFiles(_ context.Context, req *Request) (*domain.StepResult, error) {
	folder := req.String("folder", "")
	if err := requireParam(TypeList, "folder", folder); err != nil {
		return nil, err
	}
	pattern := req.String("pattern", "*")
	varName := req.String("var_name", "file_list")

	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("%w: %s: bad pattern %q", ErrInvalidParams, TypeList, pattern)
	}

	var files []string
	if req.Bool("recursive", false) {
		err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ok, _ := filepath.Match(pattern, d.Name()); ok && path != folder {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		if _, err := os.Stat(folder); err != nil {
			return nil, err
		}
		matches, err := filepath.Glob(filepath.Join(folder, pattern))
		if err != nil {
			return nil, err
		}
		files = matches
	}

	req.Vars.Set(varName, strings.Join(files, "\n"))
	req.Vars.Set(varName+"_count", fmt.Sprintf("%d", len(files)))

	items := make([]any, len(files))
	for i, f := range files {
		items[i] = f
	}
	return domain.Success(fmt.Sprintf("%d files found", len(files))).
		WithData("files", items).
		WithData("count", len(files)), nil
}

func readText(_ context.Context, req *Request) (*domain.StepResult, error) {
	path := req.String("path", "")
	if err := requireParam(TypeReadText, "path", path); err != nil {
		return nil, err
	}
	varName := req.String("var_name", "file_content")

	enc, err := lookupEncoding(req.String("encoding", "utf-8"))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := decodeText(data, enc)

	req.Vars.Set(varName, content)
	return domain.Success(fmt.Sprintf("read %s (%d chars)", path, len([]rune(content)))).
		WithData("content", content), nil
}

func writeText(_ context.Context, req *Request) (*domain.StepResult, error) {
	path := req.String("path", "")
	if err := requireParam(TypeWriteText, "path", path); err != nil {
		return nil, err
	}
	content := req.Raw("content")

	if err := writeEncoded(path, content, req.String("encoding", "utf-8"), os.O_TRUNC); err != nil {
		return nil, err
	}
	return domain.Success(fmt.Sprintf("wrote %s (%d chars)", path, len([]rune(content)))), nil
}

func appendText(_ context.Context, req *Request) (*domain.StepResult, error) {
	path := req.String("path", "")
	if err := requireParam(TypeAppendText, "path", path); err != nil {
		return nil, err
	}
	content := req.Raw("content")

	if req.Bool("newline", true) {
		if info, err := os.Stat(path); err == nil && info.Size() > 0 {
			content = "\n" + content
		}
	}

	if err := writeEncoded(path, content, req.String("encoding", "utf-8"), os.O_APPEND); err != nil {
		return nil, err
	}
	return domain.Success(fmt.Sprintf("appended to %s (%d chars)", path, len([]rune(content)))), nil
}

// writeEncoded пишет текст в файл, создавая родительские папки.
func writeEncoded(path, content, encName string, mode int) error {
	enc, err := lookupEncoding(encName)
	if err != nil {
		return err
	}
	data, err := encodeText(content, enc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// intoFolder возвращает dst/base(src), если dst — существующая папка.
func intoFolder(src, dst string) string {
	if info, err := os.Stat(dst); err == nil && info.IsDir() {
		return filepath.Join(dst, filepath.Base(src))
	}
	return dst
}

// copyFileTo копирует файл с сохранением прав и времени изменения.
func copyFileTo(src, dst string) (string, error) {
	target := intoFolder(src, dst)

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("source is a folder: %s", src)
	}
	if dstInfo, err := os.Stat(target); err == nil && os.SameFile(info, dstInfo) {
		return "", fmt.Errorf("%w: %s", ErrSameFile, target)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	_ = os.Chtimes(target, info.ModTime(), info.ModTime())
	return target, nil
}
