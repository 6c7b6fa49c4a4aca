package cli

import "context"

func (a *App) commands() []command {
	return []command{
		{names: []string{"unlock"}, usage: "unlock", whileLocked: true, run: a.unlock},
		{names: []string{"lock"}, usage: "lock", run: a.lock},
		{names: []string{"list", "l"}, usage: "list [query]", run: a.list},
		{names: []string{"code", "c"}, usage: "code <id>", run: a.code},
		{names: []string{"show"}, usage: "show <id>", run: a.show},
		{names: []string{"add"}, usage: "add", run: a.add},
		{names: []string{"addurl"}, usage: "addurl <otpauth-uri>", run: a.addURL},
		{names: []string{"rm"}, usage: "rm <id>", run: a.remove},
		{names: []string{"tag"}, usage: "tag <id> <tag>", run: a.tag},
		{names: []string{"untag"}, usage: "untag <id> <tag>", run: a.untag},
		{names: []string{"group"}, usage: "group <id> [name]", run: a.group},
		{names: []string{"fav"}, usage: "fav <id>", run: a.favorite},
		{names: []string{"note"}, usage: "note <id>", run: a.note},
		{names: []string{"tags"}, usage: "tags [tag]", run: a.tags},
		{names: []string{"groups"}, usage: "groups [name]", run: a.groups},
		{names: []string{"favs"}, usage: "favs", run: a.favorites},
		{names: []string{"recent"}, usage: "recent [n]", run: a.recent},
		{names: []string{"top"}, usage: "top [n]", run: a.top},
		{names: []string{"verify"}, usage: "verify <id> <code>", run: a.verify},
		{names: []string{"qr"}, usage: "qr <id> <file.png>", run: a.qr},
		{names: []string{"stats"}, usage: "stats", run: a.stats},
		{names: []string{"import"}, usage: "import <file>", run: a.importFile},
		{names: []string{"uris"}, usage: "uris <file>", run: a.exportURIs},
		{names: []string{"export"}, usage: "export [file|s3]", run: a.export},
		{names: []string{"backups"}, usage: "backups [file|s3]", whileLocked: true, run: a.listBackups},
		{names: []string{"restore"}, usage: "restore [file|s3] [name]", run: a.restore},
		{names: []string{"calibrate"}, usage: "calibrate", whileLocked: true, run: a.calibrate},
		{names: []string{"clear"}, usage: "clear", whileLocked: true, run: a.clear},
		{names: []string{"exit", "quit"}, usage: "exit", whileLocked: true, run: a.exit},
	}
}

func (a *App) exit(ctx context.Context, _ []string) error {
	if err := a.vault.FlushPersist(ctx); err != nil {
		a.log.Error(ctx, "final save failed", "error", err)
	}
	a.println("Bye!")
	return errQuit
}
