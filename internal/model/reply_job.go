package model

// ReplyJob asks a worker to regenerate the reply linked to a user message
// after that message was edited. Content is the edited text the job was
// issued for; a worker drops the job if the message has changed again since.
type ReplyJob struct {
	UserMessageID uint   `json:"user_message_id"`
	Content       string `json:"content"`
}
