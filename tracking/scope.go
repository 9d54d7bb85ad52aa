package tracking

// QueryScope restricts a query to every record (Global) or to the records of
// one project root (Project).
type QueryScope struct {
	dir       string
	isProject bool
}

// Global matches every record regardless of working directory.
func Global() QueryScope { return QueryScope{} }

// Project matches records whose working directory equals dir exactly.
// Records stored with an empty working directory never match, so
// Project("") matches nothing.
func Project(dir string) QueryScope { return QueryScope{dir: dir, isProject: true} }

// IsProject reports whether s filters by working directory.
func (s QueryScope) IsProject() bool { return s.isProject }

// Dir returns the project directory of s, or "" for Global.
func (s QueryScope) Dir() string { return s.dir }

func (s QueryScope) String() string {
	if s.isProject {
		return "project " + s.dir
	}
	return "global"
}

// scopedStatement holds both variants of a query. The project variant binds
// the working directory as its first parameter.
type scopedStatement struct {
	global  string
	project string
}

// newScopedStatement builds both variants by joining prefix and suffix,
// with the working directory filter in between for the project variant.
func newScopedStatement(prefix, suffix string) scopedStatement {
	return scopedStatement{
		global:  prefix + suffix,
		project: prefix + " WHERE working_dir = ? AND working_dir <> ''" + suffix,
	}
}

// bind returns the statement for s along with its leading arguments.
func (q scopedStatement) bind(s QueryScope, args ...any) (string, []any) {
	if !s.isProject {
		return q.global, args
	}
	return q.project, append([]any{s.dir}, args...)
}
