package doctree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Load reads one or more HCL document files into a single tree. If path is a
// file it must end in .hcl; if it is a directory, all .hcl files beneath it
// are merged as children of one synthetic "document" root, in lexical file
// order.
func Load(ctx context.Context, path string) (*Node, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Resolving document path.", "path", path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("document path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	var files []string
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to walk document directory %s: %w", path, err)
		}
	} else {
		if filepath.Ext(path) != ".hcl" {
			return nil, fmt.Errorf("specified file is not an .hcl file: %s", path)
		}
		files = []string{path}
	}

	if len(files) == 0 {
		logger.Warn("No .hcl document files found in path.", "path", path)
	}

	root := &Node{Type: "document"}
	parser := hclparse.NewParser()
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse document file %s: %w", file, diags)
		}
		if err := appendFile(ctx, root, hclFile); err != nil {
			return nil, fmt.Errorf("failed to build tree from %s: %w", file, err)
		}
		logger.Debug("Document file loaded.", "file", file)
	}

	logger.Debug("Document tree built.", "files", len(files), "top_level_nodes", len(root.Children))
	return root, nil
}

// Parse builds a document tree from in-memory HCL source. The filename is
// used only in diagnostics.
func Parse(ctx context.Context, src []byte, filename string) (*Node, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse document %s: %w", filename, diags)
	}

	root := &Node{Type: "document"}
	if err := appendFile(ctx, root, hclFile); err != nil {
		return nil, err
	}
	return root, nil
}

func appendFile(ctx context.Context, root *Node, file *hcl.File) error {
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return fmt.Errorf("unexpected body type %T, only native HCL syntax is supported", file.Body)
	}
	appendBody(ctx, root, body)
	return nil
}

func appendBody(ctx context.Context, parent *Node, body *hclsyntax.Body) {
	logger := ctxlog.FromContext(ctx)

	if parent.attrs == nil {
		parent.attrs = make(map[string]cty.Value)
	}
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			// Non-literal expressions have no meaning in a static
			// document; skip them rather than failing the load.
			logger.Debug("Skipping non-literal attribute.", "attribute", name, "range", attr.SrcRange.String())
			continue
		}
		parent.attrs[name] = val
	}

	for _, block := range body.Blocks {
		child := &Node{
			Type:   block.Type,
			Labels: block.Labels,
			Parent: parent,
			Range:  block.DefRange(),
			attrs:  make(map[string]cty.Value),
		}
		appendBody(ctx, child, block.Body)
		parent.Children = append(parent.Children, child)
	}
}
