package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/permcheck/logging"
)

type markerKind int

const (
	markerRole markerKind = iota
	markerAction
	markerPolicy
)

var httpDecorators = map[string]string{
	"Get":    "GET",
	"Post":   "POST",
	"Put":    "PUT",
	"Delete": "DELETE",
	"Patch":  "PATCH",
}

const (
	rolesDecorator      = "Roles"
	policiesDecorator   = "CheckPolicies"
	controllerDecorator = "Controller"
	checkPermission     = "checkPermission"
)

type marker struct {
	kind  markerKind
	value string
	pos   uint32
}

// methodDecl is a class member markers can bind to. Fields absorb the
// markers written on them but never produce facts.
type methodDecl struct {
	name  string
	pos   uint32
	field bool
}

type walker struct {
	src   []byte
	facts *ControllerFacts

	markers    []marker
	methods    []methodDecl
	classRoles string

	services   map[string]string
	conditions map[string]string
}

// Extract parses one controller file. Every decorator binds to the closest
// method declaration that follows it; when several decorators of one kind
// bind to the same method the closest one wins.
func Extract(ctx context.Context, file string, src []byte) (*ControllerFacts, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(typescript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &walker{
		src:        src,
		facts:      &ControllerFacts{File: file, SyntaxErrors: root.HasError()},
		services:   make(map[string]string),
		conditions: make(map[string]string),
	}
	if w.facts.SyntaxErrors {
		logger.Warn("Controller source has syntax errors, extraction is best-effort", zap.String("file", file))
	}

	w.visit(root, "", "")
	w.assemble()

	logger.Debug("Extracted controller facts",
		zap.String("file", file),
		zap.String("class", w.facts.ClassName),
		zap.Int("methods", len(w.facts.Methods)),
		zap.Int("markers", len(w.markers)))
	return w.facts, nil
}

// visit walks the tree depth-first in source order. method is the name of the
// enclosing class method, if any.
func (w *walker) visit(n *sitter.Node, parentType, method string) {
	switch n.Type() {
	case "import_statement":
		w.importStatement(n)
		return
	case "class_declaration", "abstract_class_declaration":
		if w.facts.ClassName == "" {
			if name := n.ChildByFieldName("name"); name != nil {
				w.facts.ClassName = name.Content(w.src)
			}
		}
	case "decorator":
		w.decorator(n, parentType)
		return
	case "method_definition":
		if parentType == "class_body" {
			method = w.methodDefinition(n)
		}
	case "public_field_definition", "field_definition":
		if parentType == "class_body" {
			w.fieldDefinition(n)
		}
	case "call_expression":
		w.call(n, method)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.visit(n.NamedChild(i), n.Type(), method)
	}
}

func (w *walker) methodDefinition(n *sitter.Node) string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	methodName := name.Content(w.src)
	if methodName == "constructor" {
		w.constructorParameters(n)
	}
	w.methods = append(w.methods, methodDecl{name: methodName, pos: name.StartByte()})
	return methodName
}

func (w *walker) fieldDefinition(n *sitter.Node) {
	pos := n.EndByte()
	if name := n.ChildByFieldName("name"); name != nil {
		pos = name.StartByte()
	}
	w.methods = append(w.methods, methodDecl{pos: pos, field: true})
}

func (w *walker) constructorParameters(n *sitter.Node) {
	params := n.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if p.Type() != "required_parameter" && p.Type() != "optional_parameter" {
			continue
		}
		pattern := p.ChildByFieldName("pattern")
		typ := p.ChildByFieldName("type")
		if pattern == nil || typ == nil {
			continue
		}
		typeName := strings.TrimSpace(strings.TrimPrefix(typ.Content(w.src), ":"))
		w.facts.Injections = append(w.facts.Injections, Injection{
			Name: pattern.Content(w.src),
			Type: typeName,
		})
	}
}

func (w *walker) decorator(n *sitter.Node, parentType string) {
	if n.NamedChildCount() == 0 {
		return
	}
	expr := n.NamedChild(0)
	if expr.Type() != "call_expression" {
		return
	}
	fn := expr.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" {
		return
	}
	name := fn.Content(w.src)
	args := arguments(expr)
	pos := n.StartByte()

	classLevel := parentType == "class_declaration" || parentType == "abstract_class_declaration" || parentType == "export_statement"
	if classLevel {
		switch name {
		case controllerDecorator:
			if len(args) > 0 {
				w.facts.BasePath = w.literal(args[0])
			}
		case rolesDecorator:
			w.classRoles = w.roleList(args)
		}
		return
	}

	switch {
	case name == rolesDecorator:
		w.markers = append(w.markers, marker{kind: markerRole, value: w.roleList(args), pos: pos})
	case name == policiesDecorator:
		w.markers = append(w.markers, marker{kind: markerPolicy, value: w.policyList(args), pos: pos})
	default:
		if verb, ok := httpDecorators[name]; ok {
			w.markers = append(w.markers, marker{kind: markerAction, value: verb, pos: pos})
		}
	}
}

func (w *walker) call(n *sitter.Node, method string) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return
	}
	obj := fn.ChildByFieldName("object")
	prop := fn.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "member_expression" {
		return
	}
	owner := obj.ChildByFieldName("object")
	field := obj.ChildByFieldName("property")
	if owner == nil || field == nil || owner.Type() != "this" {
		return
	}

	service := field.Content(w.src)
	callee := prop.Content(w.src)
	w.facts.Calls = append(w.facts.Calls, ServiceCall{Service: service, Method: callee})
	if method == "" || method == "constructor" {
		return
	}

	if callee == checkPermission {
		args := arguments(n)
		if _, seen := w.conditions[method]; !seen && len(args) >= 3 {
			w.conditions[method] = w.literal(args[2])
		}
		return
	}
	if _, seen := w.services[method]; !seen && !isPolicyName(service) {
		w.services[method] = callee
	}
}

func (w *walker) importStatement(n *sitter.Node) {
	src := n.ChildByFieldName("source")
	if src == nil {
		return
	}
	imp := Import{Path: w.literal(src)}

	var collect func(*sitter.Node)
	collect = func(c *sitter.Node) {
		switch c.Type() {
		case "import_specifier":
			// `A as B` binds B locally but the class declared in the file is A.
			if name := c.ChildByFieldName("name"); name != nil {
				imp.Names = append(imp.Names, name.Content(w.src))
			}
			return
		case "identifier":
			imp.Names = append(imp.Names, c.Content(w.src))
			return
		case "namespace_import":
			return
		}
		for i := 0; i < int(c.NamedChildCount()); i++ {
			collect(c.NamedChild(i))
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "import_clause" {
			collect(c)
		}
	}
	w.facts.Imports = append(w.facts.Imports, imp)
}

func (w *walker) roleList(args []*sitter.Node) string {
	var roles []string
	for _, a := range args {
		switch a.Type() {
		case "member_expression":
			// Role.ADMIN
			if p := a.ChildByFieldName("property"); p != nil {
				roles = append(roles, p.Content(w.src))
			}
		case "array":
			for i := 0; i < int(a.NamedChildCount()); i++ {
				if v := w.roleList([]*sitter.Node{a.NamedChild(i)}); v != "" {
					roles = append(roles, v)
				}
			}
		default:
			if v := w.literal(a); v != "" {
				roles = append(roles, v)
			}
		}
	}
	return strings.Join(roles, ",")
}

func (w *walker) policyList(args []*sitter.Node) string {
	var names []string
	for _, a := range args {
		if a.Type() != "new_expression" {
			continue
		}
		if c := a.ChildByFieldName("constructor"); c != nil {
			names = append(names, c.Content(w.src))
		}
	}
	return strings.Join(names, ",")
}

func (w *walker) literal(n *sitter.Node) string {
	v := n.Content(w.src)
	switch n.Type() {
	case "string", "template_string":
		return strings.Trim(v, "'\"`")
	}
	return v
}

func arguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, args.NamedChildCount())
	for i := 0; i < int(args.NamedChildCount()); i++ {
		c := args.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// assemble binds markers to methods and fills the parallel lists.
func (w *walker) assemble() {
	sort.SliceStable(w.markers, func(i, j int) bool { return w.markers[i].pos < w.markers[j].pos })

	bound := make([]map[markerKind]string, len(w.methods))
	for i := range bound {
		bound[i] = make(map[markerKind]string)
	}
	for _, m := range w.markers {
		idx := sort.Search(len(w.methods), func(i int) bool { return w.methods[i].pos >= m.pos })
		if idx == len(w.methods) {
			continue
		}
		bound[idx][m.kind] = m.value
	}

	for i, m := range w.methods {
		if m.field || m.name == "constructor" {
			continue
		}
		role, ok := bound[i][markerRole]
		if !ok {
			role = w.classRoles
		}
		w.facts.Methods = append(w.facts.Methods, m.name)
		w.facts.Roles = append(w.facts.Roles, map[string]string{m.name: role})
		w.facts.Actions = append(w.facts.Actions, map[string]string{m.name: bound[i][markerAction]})
		w.facts.Policies = append(w.facts.Policies, map[string]string{m.name: bound[i][markerPolicy]})
		w.facts.Services = append(w.facts.Services, map[string]string{m.name: w.services[m.name]})
		w.facts.Conditions = append(w.facts.Conditions, map[string]string{m.name: w.conditions[m.name]})
	}
}
