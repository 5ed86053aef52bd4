package domain

// OutState 描述输出目录的现状（只做 ReadDir，不读内容）。
type OutState struct {
	OutDir string

	// ExistingNames 是目录内现有文件名集合，用于 O(1) 冲突判定。
	ExistingNames map[string]struct{}
}

// FilePlan 把一条记录映射到输出目录里的最终文件名。
type FilePlan struct {
	Record PointerRecord
	// File 是落盘文件名：Name 经过文件系统安全化，批内重名时追加 __N。
	File string
	// Exists 表示 File 在规划时已存在于输出目录。
	Exists bool
}
