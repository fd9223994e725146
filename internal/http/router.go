package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAdminRoutes 注册管理后台路由
// 导入导出路径在 /admin/api/v1/people/ 之下，必须先于 PeopleHandler 分发
func (r *Router) RegisterAdminRoutes(
	people *PeopleHandler,
	fieldDefs *FieldDefsHandler,
	tags *TagsHandler,
	households *HouseholdsHandler,
	importExport *ImportExportHandler,
) {
	// people（含 form-schema / notes 子路由）
	r.HandleHandler("/admin/api/v1/people", people)
	r.Handle("/admin/api/v1/people/", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/admin/api/v1/people/import/") ||
			strings.HasPrefix(req.URL.Path, "/admin/api/v1/people/export") {
			importExport.ServeHTTP(w, req)
			return
		}
		people.ServeHTTP(w, req)
	})

	// field-defs
	r.HandleHandler("/admin/api/v1/field-defs", fieldDefs)
	r.HandleHandler("/admin/api/v1/field-defs/", fieldDefs)

	// tags
	r.HandleHandler("/admin/api/v1/tags", tags)
	r.HandleHandler("/admin/api/v1/tags/", tags)

	// households
	r.HandleHandler("/admin/api/v1/households", households)
	r.HandleHandler("/admin/api/v1/households/", households)

	// health
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
