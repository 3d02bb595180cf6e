package search

import (
	"github.com/Aman-CERP/symdex/internal/corpus"
)

func member(kind corpus.MemberKind, name, fullName, sig string) *corpus.Member {
	return &corpus.Member{Kind: kind, Name: name, FullName: fullName, Signature: sig}
}

// gameCorpus returns a two-module corpus used across the query tests.
func gameCorpus() *corpus.Corpus {
	player := &corpus.Type{
		Name:       "Player",
		FullName:   "Game.Core.Player",
		BaseType:   "Game.Core.Entity",
		SourcePath: "src/Player.cs",
		Fields:     []*corpus.Member{member(corpus.KindField, "health", "Game.Core.Player.health", "")},
		Methods: []*corpus.Member{
			member(corpus.KindMethod, "Attack", "Game.Core.Player.Attack", "void Attack(Game.Core.Enemy)"),
			member(corpus.KindMethod, "Heal", "Game.Core.Player.Heal", "void Heal(int)"),
		},
		Properties: []*corpus.Member{member(corpus.KindProperty, "Level", "Game.Core.Player.Level", "int Level")},
	}
	enemy := &corpus.Type{
		Name:     "Enemy",
		FullName: "Game.Core.Enemy",
		BaseType: "Game.Core.Entity",
		Events:   []*corpus.Member{member(corpus.KindEvent, "Spotted", "Game.Core.Enemy.Spotted", "Action<Game.Core.Player>")},
	}
	entity := &corpus.Type{Name: "Entity", FullName: "Game.Core.Entity", SourcePath: "src/Entity.cs"}
	hud := &corpus.Type{
		Name:     "Hud",
		FullName: "Game.UI.Hud",
		Fields:   []*corpus.Member{member(corpus.KindField, "target", "Game.UI.Hud.target", "Game.Core.Player")},
	}

	return corpus.New([]*corpus.Module{
		{
			Name:             "Game.Core",
			AssemblyFullName: "Game.Core, Version=1.0.0.0",
			AssemblyPath:     "/bin/Game.Core.dll",
			Types:            []*corpus.Type{player, enemy, entity},
		},
		{
			Name:         "Game.UI",
			AssemblyPath: "/bin/Game.UI.dll",
			Types:        []*corpus.Type{hud},
		},
	})
}
