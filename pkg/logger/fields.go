package logger

// 统一的日志字段命名常量
// 用于确保整个项目中日志字段命名的一致性，便于日志查询和分析
const (
	// FieldTraceID 追踪 ID 字段
	FieldTraceID = "traceId"

	// FieldDocumentID 文档 ID 字段
	FieldDocumentID = "documentId"

	// FieldBranch 分支名称字段
	FieldBranch = "branch"

	// FieldSourceBranch 合并来源分支字段
	FieldSourceBranch = "sourceBranch"

	// FieldTargetBranch 合并目标分支字段
	FieldTargetBranch = "targetBranch"

	// FieldRevision 修订号字段
	FieldRevision = "revision"

	// FieldParentRevision 父修订号字段
	FieldParentRevision = "parentRevision"

	// FieldAction 操作类型字段
	FieldAction = "action"

	// FieldDuration 耗时字段
	FieldDuration = "duration"

	// FieldMethod 方法名称字段
	FieldMethod = "method"

	// FieldError 错误信息字段
	FieldError = "error"

	// FieldCount 数量字段
	FieldCount = "count"
)
