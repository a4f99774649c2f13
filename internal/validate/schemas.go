package validate

import (
	"smart-check/internal/apperr"
	"smart-check/internal/model"
)

const (
	msgAllRequired   = "Todos os campos são obrigatórios."
	msgEmailFormat   = "O formato do e-mail é inválido."
	msgDueDateFormat = "dueDate deve ser uma data válida."
	msgDueDatePast   = "dueDate não pode ser uma data no passado."
)

func Register(req model.RegisterRequest) error {
	return Schema{
		{Value: req.Name, Tag: "required", Message: msgAllRequired},
		{Value: req.Email, Tag: "required", Message: msgAllRequired},
		{Value: req.Password, Tag: "required", Message: msgAllRequired},
		{Value: req.Name, Tag: "max=50", Message: "O nome não pode ter mais de 50 caracteres."},
		{Value: req.Email, Tag: "email_format", Message: msgEmailFormat},
		{Value: req.Password, Tag: "min=6", Message: "A senha deve ter pelo menos 6 caracteres."},
	}.Check()
}

func ValidateEmail(req model.ValidateEmailRequest) error {
	const missing = "Parâmetro código ou email inválido."
	return Schema{
		{Value: req.Email, Tag: "required", Message: missing},
		{Value: req.Code, Tag: "required", Message: missing},
		{Value: req.Email, Tag: "email_format", Message: msgEmailFormat},
		{Value: req.Code, Tag: "len=6", Message: "O código de confirmação deve ter 6 caracteres."},
	}.Check()
}

func Login(req model.LoginRequest) error {
	const missing = "Parâmetro de email ou senha inválidos."
	return Schema{
		{Value: req.Email, Tag: "required", Message: missing},
		{Value: req.Password, Tag: "required", Message: missing},
		{Value: req.Email, Tag: "email_format", Message: msgEmailFormat},
	}.Check()
}

// CreateTask validates the request and returns it with dueDate parsed.
func CreateTask(req model.CreateTaskRequest) (model.NewTask, error) {
	err := Schema{
		{Value: req.Title, Tag: "required", Message: msgAllRequired},
		{Value: req.ActivityID, Tag: "required", Message: msgAllRequired},
		{Value: req.Tag, Tag: "required", Message: msgAllRequired},
		{Value: req.DueDate, Tag: "required", Message: msgAllRequired},
		{Value: req.Image, Tag: "required", Message: msgAllRequired},
		{Value: req.GeneralDescription, Tag: "required", Message: msgAllRequired},
		{Value: req.SecurityDescription, Tag: "required", Message: msgAllRequired},
		{Value: req.Title, Tag: "max=50", Message: "O título não pode ter mais de 50 caracteres."},
		{Value: req.Tag, Tag: "max=30", Message: "A tag não pode ter mais de 30 caracteres."},
		{Value: req.ActivityID, Tag: "uuid", Message: "activityId deve ser UUID válido."},
		{Value: req.UserID, Tag: "omitempty,uuid", Message: "userId deve ser UUID válido."},
		{Value: req.DueDate, Tag: "timestamp", Message: msgDueDateFormat},
		{Value: req.DueDate, Tag: "notpast", Message: msgDueDatePast},
	}.Check()
	if err != nil {
		return model.NewTask{}, err
	}
	due, _ := ParseTime(req.DueDate)
	return model.NewTask{
		Title:               req.Title,
		UserID:              req.UserID,
		ActivityID:          req.ActivityID,
		Tag:                 req.Tag,
		DueDate:             due,
		Image:               req.Image,
		GeneralDescription:  req.GeneralDescription,
		SecurityDescription: req.SecurityDescription,
	}, nil
}

func StartTask(req model.StartTaskRequest) error {
	return Schema{
		{Value: req.TaskID, Tag: "required", Message: msgAllRequired},
		{Value: req.UserID, Tag: "required", Message: msgAllRequired},
		{Value: req.TaskID, Tag: "uuid", Message: "taskId deve ser UUID válido."},
		{Value: req.UserID, Tag: "uuid", Message: "userId deve ser UUID válido."},
	}.Check()
}

func FinishTask(req model.FinishTaskRequest) error {
	return Schema{
		{Value: req.TaskLogID, Tag: "required", Message: msgAllRequired},
		{Value: req.ImageConfirmation, Tag: "required", Message: msgAllRequired},
		{Value: req.TaskLogID, Tag: "uuid", Message: "taskLogId deve ser UUID válido."},
	}.Check()
}

// CreateReport validates the request; a missing created_at yields a zero time.
func CreateReport(req model.CreateReportRequest) (model.NewReport, error) {
	const missing = "Os campos taskId, problemId e description são obrigatórios."
	const badIDs = "taskId e problemId devem ser UUIDs válidos."
	err := Schema{
		{Value: req.TaskID, Tag: "required", Message: missing},
		{Value: req.ProblemID, Tag: "required", Message: missing},
		{Value: req.Description, Tag: "required", Message: missing},
		{Value: req.TaskID, Tag: "uuid", Message: badIDs},
		{Value: req.ProblemID, Tag: "uuid", Message: badIDs},
		{Value: req.Description, Tag: "max=500", Message: "A descrição não pode ter mais de 500 caracteres."},
		{Value: req.CreatedAt, Tag: "omitempty,timestamp", Message: "created_at deve ser uma data válida."},
		{Value: req.CreatedAt, Tag: "omitempty,notfuture", Message: "created_at não pode ser uma data no futuro."},
	}.Check()
	if err != nil {
		return model.NewReport{}, err
	}
	out := model.NewReport{TaskID: req.TaskID, ProblemID: req.ProblemID, Description: req.Description}
	if t, ok := ParseTime(req.CreatedAt); ok {
		out.CreatedAt = t
	}
	return out, nil
}

// UpdateUser checks the body of POST /users/:userId/update against the path id.
func UpdateUser(userID string, req model.UpdateUserRequest) error {
	if req.User == nil || req.Assignment == nil {
		return apperr.Validation("Os campos user e assignment são obrigatórios.")
	}
	return Schema{
		{Value: req.User.ID, Tag: "required,uuid", Message: "user.id deve ser UUID válido."},
		{Value: req.User.ID, Other: userID, Tag: "eqfield", Message: "user.id não corresponde ao userId informado."},
		{Value: req.User.Role, Tag: "omitempty,oneof=user admin", Message: "role deve ser user ou admin."},
		{Value: req.Assignment.ID, Tag: "omitempty,uuid", Message: "assignment.id deve ser UUID válido."},
		{Value: req.Assignment.Activity, Tag: "required,uuid", Message: "assignment.activity deve ser UUID válido."},
	}.Check()
}
