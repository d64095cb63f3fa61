package schema

// quarterlyFields mirrors the physical financials.quarterly table column for
// column. Bump Version when editing.
var quarterlyFields = [...]Field{
	{Name: "ticker", Type: String},
	{Name: "symbol", Type: String},
	{Name: "date", Type: Timestamp},
	{Name: "accountsPayable", Type: Float},
	{Name: "accumulatedOtherComprehensiveIncome", Type: Float},
	{Name: "beginPeriodCashFlow", Type: Float},
	{Name: "capitalExpenditures", Type: Float},
	{Name: "capitalStock", Type: Float},
	{Name: "cash", Type: Float},
	{Name: "cashAndShortTermInvestments", Type: Float},
	{Name: "changeInCash", Type: Float},
	{Name: "changeInWorkingCapital", Type: Float},
	{Name: "changeToAccountReceivables", Type: Float},
	{Name: "changeToInventory", Type: Float},
	{Name: "commonStock", Type: Float},
	{Name: "commonStockSharesOutstanding", Type: Float},
	{Name: "costOfRevenue", Type: Float},
	{Name: "currentDeferredRevenue", Type: Float},
	{Name: "depreciation", Type: Float},
	{Name: "dividendsPaid", Type: Float},
	{Name: "ebitda", Type: Float},
	{Name: "endPeriodCashFlow", Type: Float},
	{Name: "freeCashFlow", Type: Float},
	{Name: "grossProfit", Type: Float},
	{Name: "incomeBeforeTax", Type: Float},
	{Name: "incomeTaxExpense", Type: Float},
	{Name: "inventory", Type: Float},
	{Name: "investments", Type: Float},
	{Name: "liabilitiesAndStockholdersEquity", Type: Float},
	{Name: "longTermDebt", Type: Float},
	{Name: "longTermInvestments", Type: Float},
	{Name: "netDebt", Type: Float},
	{Name: "netIncome", Type: Float},
	{Name: "netIncomeFromContinuingOps", Type: Float},
	{Name: "netInvestedCapital", Type: Float},
	{Name: "netReceivables", Type: Float},
	{Name: "netWorkingCapital", Type: Float},
	{Name: "nonCurrentAssetsTotal", Type: Float},
	{Name: "nonCurrentLiabilitiesOther", Type: Float},
	{Name: "nonCurrentLiabilitiesTotal", Type: Float},
	{Name: "nonCurrrentAssetsOther", Type: Float},
	{Name: "operatingIncome", Type: Float},
	{Name: "otherCashflowsFromFinancingActivities", Type: Float},
	{Name: "otherCashflowsFromInvestingActivities", Type: Float},
	{Name: "otherCurrentAssets", Type: Float},
	{Name: "otherCurrentLiab", Type: Float},
	{Name: "otherNonCashItems", Type: Float},
	{Name: "otherOperatingExpenses", Type: Float},
	{Name: "propertyPlantAndEquipmentGross", Type: Float},
	{Name: "propertyPlantAndEquipmentNet", Type: Float},
	{Name: "reconciledDepreciation", Type: Float},
	{Name: "researchDevelopment", Type: Float},
	{Name: "retainedEarnings", Type: Float},
	{Name: "salePurchaseOfStock", Type: Float},
	{Name: "sellingGeneralAdministrative", Type: Float},
	{Name: "shortLongTermDebt", Type: Float},
	{Name: "shortLongTermDebtTotal", Type: Float},
	{Name: "shortTermDebt", Type: Float},
	{Name: "shortTermInvestments", Type: Float},
	{Name: "stockBasedCompensation", Type: Float},
	{Name: "taxProvision", Type: Float},
	{Name: "totalAssets", Type: Float},
	{Name: "totalCashFromFinancingActivities", Type: Float},
	{Name: "totalCashFromOperatingActivities", Type: Float},
	{Name: "totalCurrentAssets", Type: Float},
	{Name: "totalCurrentLiabilities", Type: Float},
	{Name: "totalLiab", Type: Float},
	{Name: "totalOperatingExpenses", Type: Float},
	{Name: "totalOtherIncomeExpenseNet", Type: Float},
	{Name: "totalRevenue", Type: Float},
	{Name: "totalStockholderEquity", Type: Float},
	{Name: "depreciationAndAmortization", Type: Float},
	{Name: "ebit", Type: Float},
	{Name: "otherStockholderEquity", Type: Float},
	{Name: "interestExpense", Type: Float},
	{Name: "capitalLeaseObligations", Type: Float},
	{Name: "capitalSurpluse", Type: Float},
	{Name: "cashAndCashEquivalentsChanges", Type: Float},
	{Name: "cashAndEquivalents", Type: Float},
	{Name: "changeReceivables", Type: Float},
	{Name: "interestIncome", Type: Float},
	{Name: "longTermDebtTotal", Type: Float},
	{Name: "netIncomeApplicableToCommonShares", Type: Float},
	{Name: "netInterestIncome", Type: Float},
	{Name: "nonOperatingIncomeNetOther", Type: Float},
	{Name: "otherAssets", Type: Float},
	{Name: "propertyPlantEquipment", Type: Float},
	{Name: "totalCashflowsFromInvestingActivities", Type: Float},
	{Name: "accumulatedDepreciation", Type: Float},
	{Name: "cashFlowsOtherOperating", Type: Float},
	{Name: "changeToLiabilities", Type: Float},
	{Name: "changeToNetincome", Type: Float},
	{Name: "changeToOperatingActivities", Type: Float},
	{Name: "commonStockTotalEquity", Type: Float},
	{Name: "netBorrowings", Type: Float},
	{Name: "netTangibleAssets", Type: Float},
	{Name: "otherLiab", Type: Float},
	{Name: "retainedEarningsTotalEquity", Type: Float},
	{Name: "issuanceOfCapitalStock", Type: Float},
	{Name: "additionalPaidInCapital", Type: Float},
	{Name: "deferredLongTermLiab", Type: Float},
	{Name: "discontinuedOperations", Type: Float},
	{Name: "effectOfAccountingCharges", Type: Float},
	{Name: "extraordinaryItems", Type: Float},
	{Name: "goodWill", Type: Float},
	{Name: "minorityInterest", Type: Float},
	{Name: "nonRecurring", Type: Float},
	{Name: "noncontrollingInterestInConsolidatedEntity", Type: Float},
	{Name: "otherItems", Type: Float},
	{Name: "preferredStockTotalEquity", Type: Float},
	{Name: "temporaryEquityRedeemableNoncontrollingInterests", Type: Float},
	{Name: "totalPermanentEquity", Type: Float},
	{Name: "treasuryStock", Type: Float},
	{Name: "intangibleAssets", Type: Float},
	{Name: "sellingAndMarketingExpenses", Type: Float},
	{Name: "warrants", Type: Float},
	{Name: "accumulatedAmortization", Type: Float},
	{Name: "deferredLongTermAssetCharges", Type: Float},
	{Name: "exchangeRateChanges", Type: Float},
	{Name: "negativeGoodwill", Type: Float},
	{Name: "preferredStockAndOtherAdjustments", Type: Float},
	{Name: "preferredStockRedeemable", Type: Float},
	{Name: "earningAssets", Type: Float},
}
