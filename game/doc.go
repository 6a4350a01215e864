/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

// Package game keeps running scores for card and board games played in shared
// rooms. A room holds a roster, an admin (dealer) policy and the rounds played so
// far; totals and the next admin are always derived from that history.
package game
