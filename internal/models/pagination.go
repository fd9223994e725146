package models

// Pagination 列表响应中的分页信息
type Pagination struct {
	Size  int `json:"size"`
	Page  int `json:"page"`
	Count int `json:"count"`
}
