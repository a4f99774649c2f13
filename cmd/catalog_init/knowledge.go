package main

import (
	"context"

	"smart-check/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

var knowledge = []sdk.NL2SQLKnowledgeCreateRequest{
	{Type: "glossary", Key: "tarefa", Value: []string{"registro da tabela tasks, atribuído a um usuário de uma atividade"}},
	{Type: "glossary", Key: "reporte", Value: []string{"registro da tabela reports, um problema encontrado durante uma tarefa"}},
	{Type: "glossary", Key: "atrasada", Value: []string{"tarefa com due_date anterior a agora e status diferente de finished"}},

	{Type: "synonyms", Key: "responsável/executor/quem", Value: []string{"usuário da tarefa"}, AssociateTables: []string{"tasks,user_id"}},
	{Type: "synonyms", Key: "prazo/vencimento/entrega", Value: []string{"prazo da tarefa"}, AssociateTables: []string{"tasks,due_date"}},
	{Type: "synonyms", Key: "situação/estado", Value: []string{"status da tarefa"}, AssociateTables: []string{"tasks,status"}},
	{Type: "synonyms", Key: "ocorrência/problema/falha", Value: []string{"reporte de problema"}, AssociateTables: []string{"reports,description"}},

	{Type: "logic", Key: "reportes de uma tarefa: reports.task_id = tasks.id", Value: []string{"JOIN reports ON reports.task_id = tasks.id"}},
	{Type: "logic", Key: "tarefas em aberto são as que têm status diferente de finished", Value: []string{"status <> 'finished'"}},

	{Type: "case_library", Key: "quantas tarefas estão em aberto", Value: []string{"SELECT COUNT(*) FROM tasks WHERE status <> 'finished'"}},
	{Type: "case_library", Key: "quais tarefas estão atrasadas", Value: []string{"SELECT id, title, due_date FROM tasks WHERE status <> 'finished' AND due_date < NOW() ORDER BY due_date"}},
	{Type: "case_library", Key: "quais tarefas tiveram mais reportes", Value: []string{"SELECT t.title, COUNT(r.id) AS total FROM tasks t JOIN reports r ON r.task_id = t.id GROUP BY t.id, t.title ORDER BY total DESC LIMIT 10"}},
}

func initKnowledge(ctx context.Context, client *sdk.RawClient) error {
	for _, k := range knowledge {
		resp, err := client.CreateKnowledge(ctx, &k)
		if err != nil {
			if isDuplicate(err) {
				logger.Info("knowledge: already exists, skipping", "type", k.Type, "key", k.Key)
				continue
			}
			return err
		}
		logger.Info("knowledge: created", "type", k.Type, "key", k.Key, "id", resp.ID)
	}
	return nil
}
