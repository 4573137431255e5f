package book

type AddBookReq struct {
	Title     string `json:"title" validate:"required"`
	Author    string `json:"author" validate:"required"`
	Condition string `json:"condition" validate:"omitempty,oneof=new good fair worn"`
}
