package repository

var schemaStatements = []string{
	`CREATE CONSTRAINT affiliate_id IF NOT EXISTS FOR (a:Affiliate) REQUIRE a.affiliateId IS UNIQUE`,
	`CREATE CONSTRAINT affiliate_referral_code IF NOT EXISTS FOR (a:Affiliate) REQUIRE a.referralCode IS UNIQUE`,
	`CREATE CONSTRAINT promo_code IF NOT EXISTS FOR (p:PromoCode) REQUIRE p.code IS UNIQUE`,
}

const affiliateProjection = `
RETURN a.affiliateId AS affiliateId,
       a.userId AS userId,
       a.status AS status,
       a.parentAffiliateId AS parentAffiliateId,
       a.referralCode AS referralCode,
       [(a)-[:HAS_PROMO_CODE]->(pc:PromoCode) | pc.code] AS promoCodes,
       a.createdAt AS createdAt,
       a.updatedAt AS updatedAt
`

const upsertAffiliateCypher = `
MERGE (a:Affiliate {affiliateId: $affiliateId})
SET a += $props
WITH a
OPTIONAL MATCH (a)-[old:SUB_AFFILIATE_OF]->(:Affiliate)
DELETE old
WITH DISTINCT a
OPTIONAL MATCH (p:Affiliate {affiliateId: $parentId})
FOREACH (_ IN CASE WHEN $parentId = "" OR p IS NULL THEN [] ELSE [1] END |
	MERGE (a)-[:SUB_AFFILIATE_OF]->(p)
)
WITH a
OPTIONAL MATCH (a)-[stale:HAS_PROMO_CODE]->(old:PromoCode)
WHERE NOT old.code IN $promoCodes
DELETE stale
WITH DISTINCT a
FOREACH (code IN $promoCodes |
	MERGE (pc:PromoCode {code: code})
	MERGE (a)-[:HAS_PROMO_CODE]->(pc)
)
RETURN a.affiliateId AS affiliateId
`

const getAffiliateCypher = `
MATCH (a:Affiliate {affiliateId: $affiliateId})
` + affiliateProjection

const findByCodeCypher = `
MATCH (a:Affiliate)
WHERE a.referralCode = $code OR EXISTS { MATCH (a)-[:HAS_PROMO_CODE]->(:PromoCode {code: $code}) }
` + affiliateProjection + `LIMIT 1
`

const listChildrenCypher = `
MATCH (a:Affiliate {parentAffiliateId: $parentId})
` + affiliateProjection + `ORDER BY a.affiliateId
`

const allAffiliatesCypher = `
MATCH (a:Affiliate)
` + affiliateProjection + `ORDER BY a.affiliateId
`

const listAffiliatesCypherTemplate = `
MATCH (a:Affiliate)
%s
` + affiliateProjection + `ORDER BY %s
SKIP $skip LIMIT $limit
`

const countAffiliatesCypherTemplate = `
MATCH (a:Affiliate)
%s
RETURN count(a) AS total
`

const affiliateFilterClause = `
WHERE ($status = "" OR toUpper(a.status) = $status)
  AND (
    $role = ""
    OR ($role = "MAIN" AND coalesce(a.parentAffiliateId, "") = "")
    OR ($role = "SUB" AND coalesce(a.parentAffiliateId, "") <> "")
  )
  AND ($parentId = "" OR a.parentAffiliateId = $parentId)
  AND (
    $search = ""
    OR toLower(a.affiliateId) CONTAINS $search
    OR toLower(coalesce(a.userId, "")) CONTAINS $search
    OR toLower(coalesce(a.referralCode, "")) CONTAINS $search
  )
`

const updateReferralCodeCypher = `
MATCH (a:Affiliate {affiliateId: $affiliateId})
OPTIONAL MATCH (other:Affiliate {referralCode: $code})
WHERE other.affiliateId <> $affiliateId
WITH a, count(other) AS taken
FOREACH (_ IN CASE WHEN taken = 0 THEN [1] ELSE [] END |
	SET a.referralCode = $code, a.updatedAt = $updatedAt
)
RETURN a.affiliateId AS affiliateId, taken
`

const setStatusCypher = `
MATCH (a:Affiliate {affiliateId: $affiliateId})
SET a.status = $status, a.updatedAt = $updatedAt
` + affiliateProjection
