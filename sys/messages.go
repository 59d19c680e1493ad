package sys

const (
	// --- Infrastructure & Lifecycle ---
	MsgConfigFailedToLoad = "Failed to load config: %v"
	MsgConfigMissing      = "%s is not set in the environment or .env file"
	MsgConfigInvalid      = "%s is invalid: %v"
	MsgDaemonStarting     = "Starting..."
	MsgDaemonStopped      = "Stopped."
	MsgBotStarting        = "Starting %s..."
	MsgBotReady           = "%s is ready! (ID: %s) (PID: %d) (Took: %dms)"
	MsgBotShutdown        = "Shutting down %s..."
	MsgBotKillingOld      = "Killing running instance... (PID: %d)"
	MsgBotKillFail        = "Failed to kill old instance: %v"
	MsgBotOldTerminated   = "Old instance terminated."
	MsgBotPIDWriteFail    = "Failed to write PID file: %v"
	MsgBotClientFail      = "Failed to create client: %v"
	MsgBotConnectFail     = "Failed to open gateway: %v"
	MsgBotRegisterFail    = "Command registration failed: %v"
	MsgGenericError       = "%v"

	// --- Command Loader & Registry ---
	MsgLoaderSyncCommands       = "Syncing %s commands..."
	MsgLoaderUpToDate           = "[LOADER] Commands are up to date. (Hash: %s)"
	MsgLoaderHashWriteFail      = "[LOADER] Failed to remember command hash: %v"
	MsgLoaderDevStarting        = "[DEV] Registering commands to guild: %s"
	MsgLoaderDevRegistered      = "[DEV] Registered: %s"
	MsgLoaderDevFail            = "[DEV] Registration failed: %v"
	MsgLoaderDevGlobalClear     = "[DEV] Verifying global commands are cleared..."
	MsgLoaderDevGlobalClearFail = "[DEV] Global clear skipped (likely rate limited): %v"
	MsgLoaderProdStarting       = "[PROD] Registering commands globally..."
	MsgLoaderProdRegistered     = "[PROD] Registered: %s"
	MsgLoaderProdFail           = "[PROD] Global registration failed: %w"
	MsgLoaderPanicRecovered     = "Panic recovered in handler: %v"
	MsgQueuePanicRecovered      = "Panic recovered in queued job: %v"

	// --- Store ---
	MsgStoreOpened        = "Using %s"
	MsgStoreEmpty         = "No saved state in %s, starting fresh"
	MsgStoreMalformed     = "Saved state in %s is unreadable, starting fresh: %v"
	MsgStoreLoadFail      = "Failed to load state from %s: %v"
	MsgStoreSaveFail      = "Failed to save state: %v"
	MsgStoreCloseFail     = "Failed to close %s: %v"
	MsgStoreDroppedRecord = "Dropped unreadable record: %v"

	// --- Ledger ---
	MsgLedgerRecorded = "Recorded %s in channel %s (first overall: %t)"
	MsgLedgerRestored = "Restored %d winners and %d days of history (season start: %s)"

	// --- Scheduler ---
	MsgSchedulerNextDaily   = "Next daily reset at %s (in %s)"
	MsgSchedulerDailyReset  = "Daily records cleared, %s has begun"
	MsgSchedulerNoSeason    = "No season has started, checking again in %s"
	MsgSchedulerNextAnnual  = "Next annual reset at %s (in %s)"
	MsgSchedulerAnnualReset = "Season closed with %d winner(s), next season starts %s"
	MsgSchedulerSummaryFail = "Failed to send season summary: %v"
	MsgSchedulerSummarySkip = "No channel to announce the season summary in"
	MsgSchedulerPanic       = "Recovered from panic in %s: %v"

	// --- Presence & Metrics ---
	MsgPresenceUpdated     = "Presence set to %q"
	MsgPresenceUpdateFail  = "Update failed: %v"
	MsgMetricsListening    = "Serving /metrics and /healthz on %s"
	MsgMetricsServeFail    = "Metrics server stopped: %v"
	MsgMetricsShutdownFail = "Metrics server shutdown failed: %v"

	// --- Permission Gate ---
	MsgGateDenied         = "No explicit %s grant for the bot in channel %s"
	MsgGateUnknownChannel = "Channel %s is not cached, denying %s"

	// --- Threadline ---
	MsgThreadlineCreated      = "Created %s thread %q in %s"
	MsgThreadlineCreateFail   = "Failed to create thread %q in %s: %v"
	MsgThreadlineReactFail    = "Failed to react to %s: %v"
	MsgThreadlineWaitFail     = "Thread pacing interrupted: %v"
	MsgThreadlineUnarchived   = "Unarchived thread %s"
	MsgThreadlineUnarchiveErr = "Failed to unarchive thread %s: %v"
	MsgThreadlineConfigured   = "Channel %s now opens threads for: %s"

	// --- Akeome ---
	MsgAkeomeCongrats        = "%s が一番乗り！あけましておめでとう！"
	MsgAkeomeSendFail        = "Failed to send congratulations to %s: %v"
	MsgAkeomeSeasonTitle     = "🎍 今シーズンの一番乗り結果"
	MsgAkeomeSeasonDesc      = "新しいシーズンが始まりました！前シーズンの最多一番乗りはこちら"
	MsgAkeomeSeasonNoWinners = "前シーズンは一番乗りがいませんでした。"

	// --- Ranking Command ---
	MsgRankingTodayTitle  = "📜 今日のあけおめランキング"
	MsgRankingTodayDesc   = "🏆 早く言った人トップ10"
	MsgRankingSeasonTitle = "🏅 通算一番乗りランキング"
	MsgRankingSeasonDesc  = "今までの最多一番乗り記録"
	MsgRankingWorstTitle  = "🐢 ワーストあけおめランキング"
	MsgRankingWorstDesc   = "一番遅かった人たち"
	MsgRankingFieldName   = "# %d %s"
	MsgRankingTime        = "🕒 %s"
	MsgRankingWins        = "🏆 一番乗り回数: %d"
	MsgRankingYourRank    = "**あなたの順位**\n# %d %s - 🕒 %s"
	MsgRankingNoneToday   = "今日はまだ誰も『%s』していません！"
	MsgRankingNoneSeason  = "まだ誰も一番乗りしていません！"
	MsgRankingNoneWorst   = "まだ『%s』の記録がありません！"
	MsgRankingUnknownUser = "ユーザーID:%s"
	MsgRankingGuildOnly   = "このコマンドはサーバー内でのみ使用できます。"

	// --- Threadline Command ---
	MsgThreadlineReply    = "<#%s> のスレッド自動作成: %s"
	MsgThreadlineDisabled = "<#%s> のスレッド自動作成を無効にしました。"
	MsgThreadlineSaveFail = "Failed to persist threadline settings: %v"

	// --- Admin Command ---
	MsgAdminNoPermission = "このコマンドを使う権限がありません。"
	MsgAdminResult       = "送信: %d / スキップ: %d"
	MsgAdminBroadcast    = "Admin broadcast by %s: sent %d, skipped %d"

	MsgInteractionRespondFail = "Failed to respond to interaction: %v"
)
