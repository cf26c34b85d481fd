package i18n

var ptBRMessages = map[Code]string{
	CodeCallerUnauthenticated:  "Entre na sua conta para alterar mutações.",
	CodeTokenInvalid:           "Seu token de acesso é inválido ou expirou.",
	CodePermissionDenied:       "Mutações: permissão negada.",
	CodeSourceMutationNotFound: "A mutação de origem {{.MutationID}} de {{.AuthorID}} não foi encontrada.",
	CodeTargetMutationNotFound: "A mutação de destino {{.MutationID}} de {{.AuthorID}} não foi encontrada.",
	CodeFilterInvalid:          "A expressão de filtro é inválida: {{.Reason}}",
}
