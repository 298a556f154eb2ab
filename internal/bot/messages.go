package bot

const (
	textStart = "Hi! I manage tasks.\n" +
		"Commands: /start, /login, /add_task <description>, /list_tasks, /close_task"
	textLoginLink        = "Follow the link to authorize with GitHub:\n%s"
	textLoginFailed      = "Failed to create a login link: %v"
	textAuthCheckFailed  = "Could not check your authorization: %v"
	textLoginFirst       = "Please log in with /login first."
	textAskDescription   = "Please enter the task description."
	textCancelButton     = "Cancel"
	textTaskAdded        = "Task added: #%d - %s"
	textCreateFailed     = "Failed to create the task: %v"
	textListFailed       = "Failed to list tasks: %v"
	textNoOpenTasks      = "No open tasks!"
	textOpenTasks        = "Open tasks:\n"
	textNothingToClose   = "No open tasks to close!"
	textChooseTask       = "Choose a task number to close:\n"
	textEnterNumber      = "Enter the task number:"
	textEmptyDescription = "The description cannot be empty. Try again."
	textNotANumber       = "The task number must be a number! Try again."
	textTaskClosed       = "Task #%d closed."
	textCancelled        = "Task creation cancelled."
	textNotCreated       = "Task not created. Use /add_task to try again."
	textGenericError     = "Error: %v"
)
